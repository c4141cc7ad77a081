// Package access implements the capability registry consulted by every
// ledger before a privileged mutation. Memberships live in the state so
// they change atomically with the transaction which changes them.
package access

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/types"
)

const (
	UnitTypeRoleMember byte = 0x01
	UnitTypeConfig     byte = 0x02
)

var (
	ErrMissingRole    = errors.New("missing required role")
	ErrZeroAddress    = errors.New("zero address can not hold a role")
	ErrInvalidRole    = errors.New("invalid role")
	ErrLastAdmin      = errors.New("can not revoke the last admin")
	ErrAlreadyGranted = errors.New("role already granted")
	ErrNotGranted     = errors.New("role not granted")
	ErrMinSigners     = errors.New("invalid minimum signer count")

	configUnitID = types.NewUnitID(UnitTypeConfig, nil)
)

type (
	// Membership is stored for every (role, address) pair that holds the role.
	Membership struct {
		_         struct{} `cbor:",toarray"`
		GrantedAt uint64
	}

	// Config holds the minimum signer count of attestations and member counts
	// used to guard against locking the registry.
	Config struct {
		_          struct{} `cbor:",toarray"`
		MinSigners uint64
		Admins     uint64
		Validators uint64
	}

	// Registry reads capabilities from the state.
	Registry struct {
		state *state.State
	}
)

func NewRegistry(s *state.State) *Registry {
	return &Registry{state: s}
}

func MembershipUnitID(role Role, addr common.Address) types.UnitID {
	return types.NewUnitID(UnitTypeRoleMember, append([]byte{byte(role)}, addr.Bytes()...))
}

func ConfigUnitID() types.UnitID {
	return configUnitID
}

func (m *Membership) Copy() state.UnitData {
	return &Membership{GrantedAt: m.GrantedAt}
}

func (c *Config) Copy() state.UnitData {
	cp := *c
	return &cp
}

// HasRole returns true when the address holds the role in the current state.
func (r *Registry) HasRole(role Role, addr common.Address) bool {
	_, err := r.state.GetUnit(MembershipUnitID(role, addr), false)
	return err == nil
}

// Require returns ErrMissingRole (wrapped) when the address does not hold the role.
func (r *Registry) Require(role Role, addr common.Address) error {
	if !r.HasRole(role, addr) {
		return fmt.Errorf("%w: %s is not %s", ErrMissingRole, addr, role)
	}
	return nil
}

func (r *Registry) IsValidator(addr common.Address) bool {
	return r.HasRole(RoleValidator, addr)
}

// MinSigners returns the configured attestation signer threshold, zero when not configured.
func (r *Registry) MinSigners() uint64 {
	cfg, err := r.Config(false)
	if err != nil {
		return 0
	}
	return cfg.MinSigners
}

func (r *Registry) Config(committed bool) (*Config, error) {
	u, err := r.state.GetUnit(configUnitID, committed)
	if err != nil {
		if errors.Is(err, state.ErrUnitNotFound) {
			return &Config{}, nil
		}
		return nil, err
	}
	cfg, ok := u.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid unit data type %T", u)
	}
	return cfg, nil
}

// Members returns the addresses holding the role.
func (r *Registry) Members(role Role, committed bool) ([]common.Address, error) {
	var members []common.Address
	err := r.state.Traverse(UnitTypeRoleMember, committed, func(id types.UnitID, _ state.UnitData) error {
		if len(id) == 2+common.AddressLength && id[1] == byte(role) {
			members = append(members, common.BytesToAddress(id[2:]))
		}
		return nil
	})
	return members, err
}

// NewUnitData returns empty unit data for the unit types owned by the registry.
func NewUnitData(id types.UnitID) (state.UnitData, error) {
	switch id.TypePart() {
	case UnitTypeRoleMember:
		return &Membership{}, nil
	case UnitTypeConfig:
		return &Config{}, nil
	}
	return nil, fmt.Errorf("unknown unit type in %s", id)
}

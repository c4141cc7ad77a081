package access

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/state"
)

// GrantRole adds the address to the role members.
func GrantRole(role Role, addr common.Address, now uint64) state.Action {
	return func(s state.UnitsWriter) error {
		if !role.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidRole, role)
		}
		if addr == (common.Address{}) {
			return ErrZeroAddress
		}
		id := MembershipUnitID(role, addr)
		if _, err := s.Get(id); err == nil {
			return fmt.Errorf("%w: %s is already %s", ErrAlreadyGranted, addr, role)
		}
		if err := s.Add(id, &Membership{GrantedAt: now}); err != nil {
			return fmt.Errorf("adding membership: %w", err)
		}
		return updateConfig(s, func(cfg *Config) error {
			switch role {
			case RoleAdmin:
				cfg.Admins++
			case RoleValidator:
				cfg.Validators++
			}
			return nil
		})
	}
}

// RevokeRole removes the address from the role members. The last admin can
// not be revoked and validators can not drop below the minimum signer count.
func RevokeRole(role Role, addr common.Address) state.Action {
	return func(s state.UnitsWriter) error {
		if !role.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidRole, role)
		}
		id := MembershipUnitID(role, addr)
		if _, err := s.Get(id); err != nil {
			return fmt.Errorf("%w: %s is not %s", ErrNotGranted, addr, role)
		}
		if err := s.Delete(id); err != nil {
			return fmt.Errorf("removing membership: %w", err)
		}
		return updateConfig(s, func(cfg *Config) error {
			switch role {
			case RoleAdmin:
				if cfg.Admins <= 1 {
					return ErrLastAdmin
				}
				cfg.Admins--
			case RoleValidator:
				if cfg.Validators <= cfg.MinSigners {
					return fmt.Errorf("%w: %d validators would remain, minimum signer count is %d", ErrMinSigners, cfg.Validators-1, cfg.MinSigners)
				}
				cfg.Validators--
			}
			return nil
		})
	}
}

// SetMinSigners sets the attestation signer threshold, it must be between one
// and the number of validators.
func SetMinSigners(n uint64) state.Action {
	return func(s state.UnitsWriter) error {
		return updateConfig(s, func(cfg *Config) error {
			if n == 0 || n > cfg.Validators {
				return fmt.Errorf("%w: %d (validators %d)", ErrMinSigners, n, cfg.Validators)
			}
			cfg.MinSigners = n
			return nil
		})
	}
}

func updateConfig(s state.UnitsWriter, f func(cfg *Config) error) error {
	u, err := s.Get(configUnitID)
	if err != nil {
		if !errors.Is(err, state.ErrUnitNotFound) {
			return err
		}
		cfg := &Config{}
		if err := f(cfg); err != nil {
			return err
		}
		return s.Add(configUnitID, cfg)
	}
	cfg, ok := u.Copy().(*Config)
	if !ok {
		return fmt.Errorf("invalid unit data type %T", u)
	}
	if err := f(cfg); err != nil {
		return err
	}
	return s.Update(configUnitID, cfg)
}

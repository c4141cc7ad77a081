// Package genesis describes the initial state of a riskgate node: the
// signing domain, the initial capability holders, ledger parameters and
// initial balances.
package genesis

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	"github.com/riskgate-org/riskgate/txsystem/credit"
	"github.com/riskgate-org/riskgate/txsystem/fees"
	"github.com/riskgate-org/riskgate/txsystem/gas"
	"github.com/riskgate-org/riskgate/types"
	"github.com/riskgate-org/riskgate/util"
)

type (
	Genesis struct {
		Domain     attestation.Domain `yaml:"domain"`
		Timestamp  uint64             `yaml:"timestamp"`
		Admins     []common.Address   `yaml:"admins"`
		Validators []common.Address   `yaml:"validators"`
		MinSigners uint64             `yaml:"min-signers"`
		Issuers    []common.Address   `yaml:"issuers,omitempty"`
		Treasury   []common.Address   `yaml:"treasury,omitempty"`
		Sponsors   []common.Address   `yaml:"sponsors,omitempty"`

		Balances        []Balance `yaml:"balances,omitempty"`
		CreditLiquidity uint64    `yaml:"credit-liquidity"`
		SponsorPool     uint64    `yaml:"sponsor-pool"`

		// nil parameters leave the ledger defaults in place
		Credit *credit.Params `yaml:"credit,omitempty"`
		Fees   *fees.Params   `yaml:"fees,omitempty"`
		Gas    *gas.Params    `yaml:"gas,omitempty"`
	}

	Balance struct {
		Address common.Address `yaml:"address"`
		Amount  uint64         `yaml:"amount"`
	}
)

// Default returns a genesis with the default domain and ledger parameters,
// the caller must fill in the capability holders.
func Default() *Genesis {
	return &Genesis{
		Domain: attestation.Domain{
			Name:    "riskgate",
			Version: "1",
			ChainID: 1,
		},
		MinSigners: 1,
		Credit:     credit.DefaultParams(),
		Fees:       fees.DefaultParams(),
		Gas:        gas.DefaultParams(),
	}
}

func Load(path string) (*Genesis, error) {
	g, err := util.ReadYamlFile(path, &Genesis{})
	if err != nil {
		return nil, fmt.Errorf("loading genesis: %w", err)
	}
	return g, nil
}

func (g *Genesis) Save(path string) error {
	return util.WriteYamlFile(path, g)
}

func (g *Genesis) IsValid() error {
	if g == nil {
		return errors.New("genesis is nil")
	}
	var errs []error
	if err := g.Domain.IsValid(); err != nil {
		errs = append(errs, fmt.Errorf("invalid domain: %w", err))
	}
	if len(g.Admins) == 0 {
		errs = append(errs, errors.New("at least one admin is required"))
	}
	if len(g.Validators) == 0 {
		errs = append(errs, errors.New("at least one validator is required"))
	}
	if g.MinSigners == 0 || g.MinSigners > uint64(len(g.Validators)) {
		errs = append(errs, fmt.Errorf("min signers must be between 1 and %d, got %d", len(g.Validators), g.MinSigners))
	}
	if g.Credit != nil {
		if err := g.Credit.IsValid(); err != nil {
			errs = append(errs, fmt.Errorf("invalid credit parameters: %w", err))
		}
	}
	if g.Fees != nil {
		if err := g.Fees.IsValid(); err != nil {
			errs = append(errs, fmt.Errorf("invalid fee parameters: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Apply writes the genesis into the (empty) state and commits it.
func (g *Genesis) Apply(s *state.State) error {
	if err := g.IsValid(); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}
	if s.UnitCount() != 0 {
		return errors.New("state is not empty")
	}
	var actions []state.Action
	grant := func(role access.Role, addrs []common.Address) {
		for _, addr := range addrs {
			actions = append(actions, access.GrantRole(role, addr, g.Timestamp))
		}
	}
	grant(access.RoleAdmin, g.Admins)
	grant(access.RoleValidator, g.Validators)
	grant(access.RoleIssuer, g.Issuers)
	grant(access.RoleTreasury, g.Treasury)
	grant(access.RoleSponsor, g.Sponsors)
	actions = append(actions, access.SetMinSigners(g.MinSigners))

	if g.Credit != nil {
		actions = append(actions, credit.SetParams(g.Credit))
	}
	if g.Fees != nil {
		actions = append(actions, state.SetUnit(fees.ParamsID(), g.Fees))
	}
	if g.Gas != nil {
		actions = append(actions, state.SetUnit(gas.ParamsID(), g.Gas))
	}
	for _, b := range g.Balances {
		actions = append(actions, bank.Credit(b.Address, b.Amount))
	}
	if g.CreditLiquidity > 0 {
		actions = append(actions, credit.AddLiquidity(g.CreditLiquidity))
	}
	if g.SponsorPool > 0 {
		actions = append(actions, gas.AddToPool(g.SponsorPool))
	}

	if err := s.Apply(actions...); err != nil {
		return fmt.Errorf("applying genesis: %w", err)
	}
	s.Commit()
	return nil
}

// Hash identifies the genesis, nodes started from different genesis files
// have different hashes.
func (g *Genesis) Hash() (common.Hash, error) {
	b, err := types.Cbor.Marshal(g)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding genesis: %w", err)
	}
	return crypto.Keccak256Hash(b), nil
}

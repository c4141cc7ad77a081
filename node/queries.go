package node

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/keyvaluedb"
	"github.com/riskgate-org/riskgate/state"
	"github.com/riskgate-org/riskgate/tier"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	"github.com/riskgate-org/riskgate/txsystem/credit"
	"github.com/riskgate-org/riskgate/txsystem/escrow"
	"github.com/riskgate-org/riskgate/txsystem/gas"
	"github.com/riskgate-org/riskgate/txsystem/reputation"
	"github.com/riskgate-org/riskgate/types"
)

// ErrNotFound is returned by queries for records which do not exist.
var ErrNotFound = errors.New("not found")

// MaxEventsPageSize limits the number of events returned by one Events call.
const MaxEventsPageSize = 1000

type (
	Info struct {
		GenesisHash  common.Hash        `json:"genesisHash"`
		Domain       attestation.Domain `json:"domain"`
		Round        uint64             `json:"round,string"`
		NextEventSeq uint64             `json:"nextEventSeq,string"`
		StateRoot    []byte             `json:"stateRoot"`
		Units        int                `json:"units"`
		MinSigners   uint64             `json:"minSigners"`
		Validators   []common.Address   `json:"validators"`
	}

	FeeInfo struct {
		Tier   tier.Tier `json:"tier"`
		FeeBps uint64    `json:"feeBps"`
		Volume uint64    `json:"volume,string"`
	}

	GasAllowanceInfo struct {
		Tier       tier.Tier `json:"tier"`
		Eligible   bool      `json:"eligible"`
		Remaining  uint64    `json:"remaining,string"`
		UsedToday  uint64    `json:"usedToday,string"`
		TotalSpent uint64    `json:"totalSpent,string"`
	}
)

// Info describes the node, the state is always committed while no
// transaction is being submitted.
func (n *Node) Info() (*Info, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m := n.meta

	root, err := n.txSystem.StateRoot()
	if err != nil {
		return nil, fmt.Errorf("reading state root: %w", err)
	}
	validators, err := n.registry.Members(access.RoleValidator, true)
	if err != nil {
		return nil, fmt.Errorf("reading validators: %w", err)
	}
	cfg, err := n.registry.Config(true)
	if err != nil {
		return nil, fmt.Errorf("reading registry config: %w", err)
	}
	return &Info{
		GenesisHash:  m.GenesisHash,
		Domain:       n.verifier.Domain(),
		Round:        m.Round,
		NextEventSeq: m.NextEventSeq,
		StateRoot:    root,
		Units:        n.state.UnitCount(),
		MinSigners:   cfg.MinSigners,
		Validators:   validators,
	}, nil
}

// Nonce returns the nonce the next transaction order of the address must carry.
func (n *Node) Nonce(addr common.Address) (uint64, error) {
	acc, err := n.bank.Account(addr, true)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

func (n *Node) Account(addr common.Address) (*bank.Account, error) {
	return n.bank.Account(addr, true)
}

func (n *Node) JointAccount(id common.Hash) (*bank.JointAccount, error) {
	acc, err := n.bank.JointAccount(types.NewUnitID(bank.UnitTypeJointAccount, id.Bytes()), true)
	if err != nil {
		return nil, notFound(err)
	}
	return acc, nil
}

func (n *Node) Reputation(subject common.Address) (*reputation.Record, error) {
	rec, found, err := n.reputation.Record(subject, true)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("reputation of %s: %w", subject, ErrNotFound)
	}
	return rec, nil
}

// CreditLine returns the line with interest accrued until the current time.
func (n *Node) CreditLine(subject common.Address) (*credit.Line, error) {
	line, found, err := n.credit.Preview(subject, n.txSystem.Now())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("credit line of %s: %w", subject, ErrNotFound)
	}
	return line, nil
}

func (n *Node) CreditPool() (*credit.Pool, error) {
	return n.credit.Pool(true)
}

func (n *Node) CreditParams() (*credit.Params, error) {
	return n.credit.Params(true)
}

// Fee and GasAllowance read only the committed state, a transaction in
// flight or one which is about to be reverted is never visible.
func (n *Node) Fee(subject common.Address) (*FeeInfo, error) {
	fee, err := n.fees.EffectiveFee(subject, true)
	if err != nil {
		return nil, err
	}
	vol, err := n.fees.Volume(subject, true)
	if err != nil {
		return nil, err
	}
	return &FeeInfo{Tier: n.reputation.Tier(subject, true), FeeBps: fee, Volume: vol.Volume}, nil
}

func (n *Node) GasAllowance(subject common.Address) (*GasAllowanceInfo, error) {
	now := n.txSystem.Now()
	remaining, err := n.gas.RemainingAllowance(subject, now, true)
	if err != nil {
		return nil, err
	}
	a, err := n.gas.Allowance(subject, true)
	if err != nil {
		return nil, err
	}
	t := n.reputation.Tier(subject, true)
	used := a.UsedToday
	if gas.Day(now) != a.LastResetDay {
		used = 0
	}
	return &GasAllowanceInfo{
		Tier:       t,
		Eligible:   gas.Eligible(t),
		Remaining:  remaining,
		UsedToday:  used,
		TotalSpent: a.TotalSpent,
	}, nil
}

func (n *Node) SponsorPool() (*gas.Pool, error) {
	return n.gas.Pool(true)
}

func (n *Node) Commit(id common.Hash) (*escrow.Commit, error) {
	c, found, err := n.escrow.Commit(id, true)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("commit %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (n *Node) TransactionRecord(hash common.Hash) (*types.TransactionRecord, error) {
	rec := &types.TransactionRecord{}
	found, err := n.db.Read(txKey(hash), rec)
	if err != nil {
		return nil, fmt.Errorf("reading transaction record: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("transaction %s: %w", hash, ErrNotFound)
	}
	return rec, nil
}

// Events returns up to "limit" persisted events starting with sequence number "from".
func (n *Node) Events(from uint64, limit int) ([]*types.Event, error) {
	if limit <= 0 || limit > MaxEventsPageSize {
		limit = MaxEventsPageSize
	}
	var events []*types.Event
	err := keyvaluedb.ForEachFrom(n.db, eventPrefix, eventKey(from), func(key []byte, it keyvaluedb.Iterator) (bool, error) {
		e := &types.Event{}
		if err := it.Value(e); err != nil {
			return false, fmt.Errorf("reading event %X: %w", key, err)
		}
		events = append(events, e)
		return len(events) < limit, nil
	})
	return events, err
}

func notFound(err error) error {
	if errors.Is(err, state.ErrUnitNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

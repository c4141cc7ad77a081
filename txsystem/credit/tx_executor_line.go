package credit

import (
	"fmt"

	"github.com/riskgate-org/riskgate/logger"
	"github.com/riskgate-org/riskgate/tier"
	txtypes "github.com/riskgate-org/riskgate/txsystem/types"
	"github.com/riskgate-org/riskgate/types"
)

func (m *Module) validateOpenOrUpdateLineTx(tx *types.TransactionOrder, attr *OpenOrUpdateLineAttributes, exeCtx txtypes.ExecutionContext) error {
	if err := m.verifier.CheckFor(exeCtx.Caller(), attr.Attestation, attr.Signatures, exeCtx.Now()); err != nil {
		return fmt.Errorf("attestation: %w", err)
	}
	return nil
}

func (m *Module) executeOpenOrUpdateLineTx(tx *types.TransactionOrder, attr *OpenOrUpdateLineAttributes, exeCtx txtypes.ExecutionContext) (*types.ServerMetadata, error) {
	params, err := m.ledger.Params(false)
	if err != nil {
		return nil, err
	}
	pool, err := m.ledger.Pool(false)
	if err != nil {
		return nil, err
	}
	subject, now := exeCtx.Caller(), exeCtx.Now()
	newTier := tier.FromScore(attr.Attestation.Score)
	limit := Limit(attr.LimitHint, params.LimitMultiplierPct[newTier.Index()], params.CapBps, pool.Liquidity)

	var result Line
	err = m.state.Apply(UpdateLine(subject, func(line *Line) (*Line, error) {
		if line == nil {
			line = &Line{LastAccrueTime: now}
		} else if line.Tier.Valid() {
			// interest until now is charged at the old tier's rate
			Accrue(line, now, params.APRBps[line.Tier.Index()])
		}
		line.Tier = newTier
		line.Limit = limit
		result = *line
		return line, nil
	}))
	if err != nil {
		return nil, fmt.Errorf("open or update line: failed to update state: %w", err)
	}
	m.log.Debug().EmbedObject(logger.UnitID(LineID(subject))).Str("tier", newTier.String()).Uint64("limit", limit).Msg("credit line updated")
	exeCtx.EmitEvent(types.NewEvent(EventLineUpdated, subject).
		WithRef(attr.Attestation.SubjectRef).
		With("tier", uint64(result.Tier)).
		With("limit", result.Limit).
		With("debt", result.Debt))
	return &types.ServerMetadata{TargetUnits: []types.UnitID{LineID(subject)}}, nil
}

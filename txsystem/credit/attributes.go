package credit

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/types"
)

const (
	PayloadTypeOpenOrUpdateLine  = "openOrUpdateLine"
	PayloadTypeBorrow            = "borrow"
	PayloadTypeRepay             = "repay"
	PayloadTypeLiquidate         = "liquidate"
	PayloadTypeSetCreditParams   = "setCreditParams"
	PayloadTypeDepositLiquidity  = "depositLiquidity"
	PayloadTypeWithdrawLiquidity = "withdrawLiquidity"

	EventLineUpdated        types.EventType = "LineUpdated"
	EventBorrowed           types.EventType = "Borrowed"
	EventRepaid             types.EventType = "Repaid"
	EventLiquidated         types.EventType = "Liquidated"
	EventCreditParamsSet    types.EventType = "CreditParamsSet"
	EventLiquidityDeposited types.EventType = "LiquidityDeposited"
	EventLiquidityWithdrawn types.EventType = "LiquidityWithdrawn"
)

type (
	// OpenOrUpdateLineAttributes - the attestation must be about the caller.
	OpenOrUpdateLineAttributes struct {
		_           struct{} `cbor:",toarray"`
		Attestation *attestation.Attestation
		Signatures  [][]byte
		LimitHint   uint64
	}

	AmountAttributes struct {
		_      struct{} `cbor:",toarray"`
		Amount uint64
	}

	LiquidateAttributes struct {
		_       struct{} `cbor:",toarray"`
		Subject common.Address
	}

	SetCreditParamsAttributes struct {
		_      struct{} `cbor:",toarray"`
		Params *Params
	}
)

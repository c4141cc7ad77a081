package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/node"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	"github.com/riskgate-org/riskgate/txsystem/credit"
	"github.com/riskgate-org/riskgate/txsystem/escrow"
	"github.com/riskgate-org/riskgate/txsystem/gas"
	"github.com/riskgate-org/riskgate/txsystem/reputation"
	"github.com/riskgate-org/riskgate/types"
)

type (
	riskNode interface {
		SubmitTx(ctx context.Context, tx *types.TransactionOrder) (*types.TransactionRecord, error)
		TransactionRecord(hash common.Hash) (*types.TransactionRecord, error)
		Account(addr common.Address) (*bank.Account, error)
		JointAccount(id common.Hash) (*bank.JointAccount, error)
		Reputation(subject common.Address) (*reputation.Record, error)
		CreditLine(subject common.Address) (*credit.Line, error)
		CreditPool() (*credit.Pool, error)
		CreditParams() (*credit.Params, error)
		Fee(subject common.Address) (*node.FeeInfo, error)
		GasAllowance(subject common.Address) (*node.GasAllowanceInfo, error)
		SponsorPool() (*gas.Pool, error)
		Commit(id common.Hash) (*escrow.Commit, error)
		Events(from uint64, limit int) ([]*types.Event, error)
	}

	submitTxResponse struct {
		TxHash  common.Hash    `json:"txHash"`
		Status  types.TxStatus `json:"status"`
		Targets []types.UnitID `json:"targetUnits"`
		Events  []*types.Event `json:"events"`
	}

	eventsResponse struct {
		Events []*types.Event `json:"events"`
		// Next is the sequence number to continue from, nil when there are no more events.
		Next *uint64 `json:"next,omitempty"`
	}
)

/*
NodeEndpoints registers the transaction submission and state query endpoints.
*/
func NodeEndpoints(n riskNode, log *zerolog.Logger) RegistrarFunc {
	return func(r *mux.Router) {
		h := &nodeHandler{node: n, rw: responseWriter{log: log}}

		r.HandleFunc("/transactions", h.submitTx).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/transactions/{hash}", h.getTransaction).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/accounts/{address}", h.getAccount).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/joint-accounts/{id}", h.getJointAccount).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/reputation/{address}", h.getReputation).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/credit/lines/{address}", h.getCreditLine).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/credit/pool", h.getCreditPool).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/credit/params", h.getCreditParams).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/fees/{address}", h.getFee).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/gas/allowance/{address}", h.getGasAllowance).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/gas/pool", h.getSponsorPool).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/escrow/commits/{id}", h.getCommit).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/events", h.getEvents).Methods(http.MethodGet, http.MethodOptions)
	}
}

type nodeHandler struct {
	node riskNode
	rw   responseWriter
}

// submitTx expects CBOR encoded transaction order in the request body.
//
// @Summary Submit a transaction order
// @Id 1
// @version 1.0
// @Accept application/cbor
// @produce application/json
// @Success 200 {object} submitTxResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500
// @Router /transactions [post]
func (h *nodeHandler) submitTx(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	tx := &types.TransactionOrder{}
	if err := types.Cbor.Decode(r.Body, tx); err != nil {
		h.rw.errorResponse(w, http.StatusBadRequest, fmt.Errorf("decoding transaction order: %w", err))
		return
	}

	rec, err := h.node.SubmitTx(r.Context(), tx)
	if err != nil {
		if errors.Is(err, node.ErrPersistingFailed) {
			h.rw.writeErrorResponse(w, err)
			return
		}
		h.rw.errorResponse(w, http.StatusUnprocessableEntity, err)
		return
	}
	hash, err := rec.Hash()
	if err != nil {
		h.rw.writeErrorResponse(w, err)
		return
	}
	h.rw.writeResponse(w, submitTxResponse{
		TxHash:  hash,
		Status:  rec.ServerMetadata.SuccessIndicator,
		Targets: rec.ServerMetadata.TargetUnits,
		Events:  rec.ServerMetadata.GetEvents(),
	})
}

// getTransaction returns the record as CBOR when the client accepts it, JSON otherwise.
//
// @Summary Get transaction record
// @Id 2
// @version 1.0
// @produce application/json
// @Param hash path string true "Transaction hash (hex)"
// @Success 200 {object} types.TransactionRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /transactions/{hash} [get]
func (h *nodeHandler) getTransaction(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHash(mux.Vars(r), "hash")
	if err != nil {
		h.rw.invalidParamResponse(w, "hash", err)
		return
	}
	rec, err := h.node.TransactionRecord(hash)
	if err != nil {
		h.rw.writeErrorResponse(w, err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), applicationCBOR) {
		h.rw.writeCborResponse(w, rec)
		return
	}
	h.rw.writeResponse(w, rec)
}

// @Summary Get account balance and nonce
// @Id 3
// @version 1.0
// @produce application/json
// @Param address path string true "Account address (hex)"
// @Success 200 {object} bank.Account
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /accounts/{address} [get]
func (h *nodeHandler) getAccount(w http.ResponseWriter, r *http.Request) {
	h.addressQuery(w, r, func(addr common.Address) (any, error) { return h.node.Account(addr) })
}

// @Summary Get joint account
// @Id 4
// @version 1.0
// @produce application/json
// @Param id path string true "Joint account id (hex)"
// @Success 200 {object} bank.JointAccount
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /joint-accounts/{id} [get]
func (h *nodeHandler) getJointAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(mux.Vars(r), "id")
	if err != nil {
		h.rw.invalidParamResponse(w, "id", err)
		return
	}
	acc, err := h.node.JointAccount(id)
	if err != nil {
		h.rw.writeErrorResponse(w, err)
		return
	}
	h.rw.writeResponse(w, acc)
}

// @Summary Get reputation record
// @Id 5
// @version 1.0
// @produce application/json
// @Param address path string true "Subject address (hex)"
// @Success 200 {object} reputation.Record
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /reputation/{address} [get]
func (h *nodeHandler) getReputation(w http.ResponseWriter, r *http.Request) {
	h.addressQuery(w, r, func(addr common.Address) (any, error) { return h.node.Reputation(addr) })
}

// @Summary Get credit line with accrued debt
// @Id 6
// @version 1.0
// @produce application/json
// @Param address path string true "Borrower address (hex)"
// @Success 200 {object} credit.Line
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /credit/lines/{address} [get]
func (h *nodeHandler) getCreditLine(w http.ResponseWriter, r *http.Request) {
	h.addressQuery(w, r, func(addr common.Address) (any, error) { return h.node.CreditLine(addr) })
}

// @Summary Get credit pool
// @Id 7
// @version 1.0
// @produce application/json
// @Success 200 {object} credit.Pool
// @Failure 400 {object} ErrorResponse
// @Failure 500
// @Router /credit/pool [get]
func (h *nodeHandler) getCreditPool(w http.ResponseWriter, r *http.Request) {
	h.query(w, func() (any, error) { return h.node.CreditPool() })
}

// @Summary Get credit parameters
// @Id 8
// @version 1.0
// @produce application/json
// @Success 200 {object} credit.Params
// @Failure 400 {object} ErrorResponse
// @Failure 500
// @Router /credit/params [get]
func (h *nodeHandler) getCreditParams(w http.ResponseWriter, r *http.Request) {
	h.query(w, func() (any, error) { return h.node.CreditParams() })
}

// @Summary Get effective fee of a subject
// @Id 9
// @version 1.0
// @produce application/json
// @Param address path string true "Subject address (hex)"
// @Success 200 {object} node.FeeInfo
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /fees/{address} [get]
func (h *nodeHandler) getFee(w http.ResponseWriter, r *http.Request) {
	h.addressQuery(w, r, func(addr common.Address) (any, error) { return h.node.Fee(addr) })
}

// @Summary Get remaining gas allowance
// @Id 10
// @version 1.0
// @produce application/json
// @Param address path string true "Subject address (hex)"
// @Success 200 {object} node.GasAllowanceInfo
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /gas/allowance/{address} [get]
func (h *nodeHandler) getGasAllowance(w http.ResponseWriter, r *http.Request) {
	h.addressQuery(w, r, func(addr common.Address) (any, error) { return h.node.GasAllowance(addr) })
}

// @Summary Get gas sponsor pool
// @Id 11
// @version 1.0
// @produce application/json
// @Success 200 {object} gas.Pool
// @Failure 400 {object} ErrorResponse
// @Failure 500
// @Router /gas/pool [get]
func (h *nodeHandler) getSponsorPool(w http.ResponseWriter, r *http.Request) {
	h.query(w, func() (any, error) { return h.node.SponsorPool() })
}

// @Summary Get escrow commitment
// @Id 12
// @version 1.0
// @produce application/json
// @Param id path string true "Commitment id (hex)"
// @Success 200 {object} escrow.Commit
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500
// @Router /escrow/commits/{id} [get]
func (h *nodeHandler) getCommit(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(mux.Vars(r), "id")
	if err != nil {
		h.rw.invalidParamResponse(w, "id", err)
		return
	}
	c, err := h.node.Commit(id)
	if err != nil {
		h.rw.writeErrorResponse(w, err)
		return
	}
	h.rw.writeResponse(w, c)
}

// @Summary List events
// @Id 13
// @version 1.0
// @produce application/json
// @Param from query int false "sequence number of the first event" default(0)
// @Param limit query int false "maximum number of events returned"
// @Success 200 {object} eventsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500
// @Router /events [get]
func (h *nodeHandler) getEvents(w http.ResponseWriter, r *http.Request) {
	from, err := parseUint64(r, "from", 0)
	if err != nil {
		h.rw.invalidParamResponse(w, "from", err)
		return
	}
	limit, err := parseUint64(r, "limit", node.MaxEventsPageSize)
	if err != nil {
		h.rw.invalidParamResponse(w, "limit", err)
		return
	}
	if limit == 0 || limit > node.MaxEventsPageSize {
		limit = node.MaxEventsPageSize
	}

	events, err := h.node.Events(from, int(limit))
	if err != nil {
		h.rw.writeErrorResponse(w, err)
		return
	}
	rsp := eventsResponse{Events: events}
	if rsp.Events == nil {
		rsp.Events = []*types.Event{}
	}
	if len(events) == int(limit) {
		next := events[len(events)-1].Seq + 1
		rsp.Next = &next
	}
	h.rw.writeResponse(w, rsp)
}

func (h *nodeHandler) addressQuery(w http.ResponseWriter, r *http.Request, fn func(addr common.Address) (any, error)) {
	addr, err := parseAddress(mux.Vars(r), "address")
	if err != nil {
		h.rw.invalidParamResponse(w, "address", err)
		return
	}
	h.query(w, func() (any, error) { return fn(addr) })
}

func (h *nodeHandler) query(w http.ResponseWriter, fn func() (any, error)) {
	data, err := fn()
	if err != nil {
		h.rw.writeErrorResponse(w, err)
		return
	}
	h.rw.writeResponse(w, data)
}

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/riskgate-org/riskgate/node"
	"github.com/riskgate-org/riskgate/types"
)

type (
	ErrorResponse struct {
		Message string `json:"message"`
	}

	responseWriter struct {
		log *zerolog.Logger
	}
)

var errRequired = errors.New("parameter is required")

func (rw *responseWriter) writeResponse(w http.ResponseWriter, data any) {
	w.Header().Set(headerContentType, applicationJson)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rw.log.Warn().Err(err).Msg("failed to encode response data as json")
	}
}

func (rw *responseWriter) writeCborResponse(w http.ResponseWriter, data any) {
	w.Header().Set(headerContentType, applicationCBOR)
	if err := types.Cbor.Encode(w, data); err != nil {
		rw.log.Warn().Err(err).Msg("failed to encode response data as cbor")
	}
}

// writeErrorResponse maps the error returned by the node to response status.
func (rw *responseWriter) writeErrorResponse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, node.ErrNotFound):
		rw.errorResponse(w, http.StatusNotFound, err)
	case errors.Is(err, node.ErrPersistingFailed):
		rw.errorResponse(w, http.StatusInternalServerError, err)
		rw.log.Error().Err(err).Msg("request failed")
	default:
		rw.errorResponse(w, http.StatusInternalServerError, err)
		rw.log.Warn().Err(err).Msg("request failed")
	}
}

func (rw *responseWriter) invalidParamResponse(w http.ResponseWriter, name string, err error) {
	rw.errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid parameter %q: %w", name, err))
}

func (rw *responseWriter) errorResponse(w http.ResponseWriter, code int, err error) {
	w.Header().Set(headerContentType, applicationJson)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: err.Error()}); err != nil {
		rw.log.Warn().Err(err).Msg("failed to encode error response as json")
	}
}

func parseAddress(vars map[string]string, name string) (common.Address, error) {
	value := vars[name]
	if value == "" {
		return common.Address{}, errRequired
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%q is not a hex encoded address", value)
	}
	return common.HexToAddress(value), nil
}

func parseHash(vars map[string]string, name string) (common.Hash, error) {
	value := vars[name]
	if value == "" {
		return common.Hash{}, errRequired
	}
	b, err := hexutil.Decode(value)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func parseUint64(r *http.Request, name string, def uint64) (uint64, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return def, nil
	}
	return strconv.ParseUint(value, 10, 64)
}

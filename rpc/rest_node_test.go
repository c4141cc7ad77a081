package rpc

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/riskgate-org/riskgate/genesis"
	"github.com/riskgate-org/riskgate/metrics"
	"github.com/riskgate-org/riskgate/node"
	test "github.com/riskgate-org/riskgate/testutils"
	testattestation "github.com/riskgate-org/riskgate/testutils/attestation"
	testlogger "github.com/riskgate-org/riskgate/testutils/logger"
	testsig "github.com/riskgate-org/riskgate/testutils/sig"
	testtransaction "github.com/riskgate-org/riskgate/testutils/transaction"
	"github.com/riskgate-org/riskgate/txsystem/bank"
	"github.com/riskgate-org/riskgate/types"
)

type testServer struct {
	handler http.Handler
	node    *node.Node
	user    *ecdsa.PrivateKey
	addr    common.Address
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	_, validators := testsig.CreateSortedKeys(t, 2)
	user, userAddr := testsig.CreateKey(t)
	g := genesis.Default()
	g.Domain = testattestation.Domain
	g.Admins = []common.Address{test.RandomAddress()}
	g.Validators = validators
	g.Balances = []genesis.Balance{{Address: userAddr, Amount: 1000}}
	g.CreditLiquidity = 5000

	log := testlogger.New(t)
	reg := metrics.NewRegistry(true)
	n, err := node.New(g, log, node.WithMetrics(reg), node.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	require.NoError(t, err)
	t.Cleanup(n.Close)

	srv := NewRESTServer("", MaxBodySize, reg, log, NodeEndpoints(n, log), InfoEndpoints(n, log))
	return &testServer{handler: srv.Handler, node: n, user: user, addr: userAddr}
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (ts *testServer) transferOrder(t *testing.T, to common.Address, amount uint64) []byte {
	t.Helper()
	nonce, err := ts.node.Nonce(ts.addr)
	require.NoError(t, err)
	tx := testtransaction.NewSigned(t, ts.user, bank.PayloadTypeTransfer, nonce, &bank.TransferAttributes{To: to, Amount: amount})
	b, err := types.Cbor.Marshal(tx)
	require.NoError(t, err)
	return b
}

func TestSubmitTransaction(t *testing.T) {
	ts := newTestServer(t)
	other := test.RandomAddress()

	rec := ts.do(t, http.MethodPost, "/api/v1/transactions", ts.transferOrder(t, other, 10))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rsp := decode[submitTxResponse](t, rec)
	require.Equal(t, types.TxStatusSuccessful, rsp.Status)
	require.Len(t, rsp.Events, 1)
	require.Equal(t, bank.EventTransfer, rsp.Events[0].Type)

	t.Run("record as json", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/v1/transactions/"+rsp.TxHash.Hex(), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, applicationJson, rec.Header().Get(headerContentType))
	})
	t.Run("record as cbor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+rsp.TxHash.Hex(), nil)
		req.Header.Set("Accept", applicationCBOR)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		txr := &types.TransactionRecord{}
		require.NoError(t, types.Cbor.Unmarshal(rec.Body.Bytes(), txr))
		hash, err := txr.Hash()
		require.NoError(t, err)
		require.Equal(t, rsp.TxHash, hash)
	})
	t.Run("unknown transaction", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/v1/transactions/"+test.RandomHash().Hex(), nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("rejected transaction", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/transactions", ts.transferOrder(t, other, 1_000_000))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotEmpty(t, decode[ErrorResponse](t, rec).Message)
	})
	t.Run("invalid body", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/transactions", []byte{0xff, 0x01})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, decode[ErrorResponse](t, rec).Message, "decoding transaction order")
	})
	t.Run("account", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/v1/accounts/"+other.Hex(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		acc := decode[bank.Account](t, rec)
		require.EqualValues(t, 10, acc.Balance)
	})
}

func TestQueries(t *testing.T) {
	ts := newTestServer(t)
	addr := ts.addr.Hex()

	testCases := []struct {
		path string
		code int
	}{
		{path: "/api/v1/accounts/" + addr, code: http.StatusOK},
		{path: "/api/v1/accounts/0x1234", code: http.StatusBadRequest},
		{path: "/api/v1/joint-accounts/" + test.RandomHash().Hex(), code: http.StatusNotFound},
		{path: "/api/v1/joint-accounts/0x01", code: http.StatusBadRequest},
		{path: "/api/v1/reputation/" + addr, code: http.StatusNotFound},
		{path: "/api/v1/credit/lines/" + addr, code: http.StatusNotFound},
		{path: "/api/v1/credit/pool", code: http.StatusOK},
		{path: "/api/v1/credit/params", code: http.StatusOK},
		{path: "/api/v1/fees/" + addr, code: http.StatusOK},
		{path: "/api/v1/gas/allowance/" + addr, code: http.StatusOK},
		{path: "/api/v1/gas/pool", code: http.StatusOK},
		{path: "/api/v1/escrow/commits/" + test.RandomHash().Hex(), code: http.StatusNotFound},
		{path: "/api/v1/events", code: http.StatusOK},
		{path: "/api/v1/events?from=abc", code: http.StatusBadRequest},
		{path: "/api/v1/info", code: http.StatusOK},
		{path: "/api/v1/unknown", code: http.StatusNotFound},
		{path: "/metrics", code: http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, tc.path, nil)
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestFeeAndInfo(t *testing.T) {
	ts := newTestServer(t)

	fee := decode[node.FeeInfo](t, ts.do(t, http.MethodGet, "/api/v1/fees/"+ts.addr.Hex(), nil))
	require.EqualValues(t, 30, fee.FeeBps)

	info := decode[node.Info](t, ts.do(t, http.MethodGet, "/api/v1/info", nil))
	require.EqualValues(t, testattestation.Domain, info.Domain)
	require.Len(t, info.Validators, 2)
	require.Zero(t, info.Round)
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 3; i++ {
		rec := ts.do(t, http.MethodPost, "/api/v1/transactions", ts.transferOrder(t, test.RandomAddress(), 1))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rsp := decode[eventsResponse](t, ts.do(t, http.MethodGet, "/api/v1/events?limit=2", nil))
	require.Len(t, rsp.Events, 2)
	require.NotNil(t, rsp.Next)
	require.EqualValues(t, 2, *rsp.Next)

	rsp = decode[eventsResponse](t, ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events?from=%d", *rsp.Next), nil))
	require.Len(t, rsp.Events, 1)
	require.EqualValues(t, 2, rsp.Events[0].Seq)
	require.Nil(t, rsp.Next)

	rsp = decode[eventsResponse](t, ts.do(t, http.MethodGet, "/api/v1/events?from=10", nil))
	require.Empty(t, rsp.Events)
}

func TestRouteMetricName(t *testing.T) {
	require.Equal(t, "credit_lines_address", routeMetricName("/api/v1/credit/lines/{address}"))
	require.Equal(t, "info", routeMetricName("/api/v1/info"))
}

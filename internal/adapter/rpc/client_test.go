package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	"wallet-orchestrator/internal/pkg/apperrors"
)

// rpcHandler answers each method with a canned JSON value.
type rpcHandler struct {
	mu       sync.Mutex
	results  map[string]string
	errors   map[string]string
	requests []JSONRPCRequest
}

func (h *rpcHandler) respond(body []byte) []byte {
	var req JSONRPCRequest
	_ = json.Unmarshal(body, &req)

	h.mu.Lock()
	h.requests = append(h.requests, req)
	result, ok := h.results[req.Method]
	msg, isErr := h.errors[req.Method]
	h.mu.Unlock()

	if isErr {
		return []byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"` + msg + `"}}`)
	}
	if !ok {
		return []byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`)
	}
	return []byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`)
}

func (h *rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(r.Body)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.respond([]byte(buf.String())))
}

func (h *rpcHandler) last() JSONRPCRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[len(h.requests)-1]
}

func newTestClient(t *testing.T, h *rpcHandler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(NewCaller(2*time.Second, zap.NewNop()), 11155111, entity.RPCURL(srv.URL), zap.NewNop())
}

func TestClientGetBalance(t *testing.T) {
	h := &rpcHandler{results: map[string]string{"eth_getBalance": `"0xde0b6b3a7640000"`}}
	c := newTestClient(t, h)

	bal, err := c.GetBalance(context.Background(), common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal.String())

	req := h.last()
	assert.Equal(t, "eth_getBalance", req.Method)
	require.Len(t, req.Params, 2)
	assert.Equal(t, "latest", req.Params[1])
}

func TestClientCall(t *testing.T) {
	h := &rpcHandler{results: map[string]string{
		"eth_call": `"0x000000000000000000000000000000000000000000000000000000000000002a"`,
	}}
	c := newTestClient(t, h)

	out, err := c.Call(context.Background(), common.HexToAddress("0x01"), []byte{0x70, 0xa0, 0x82, 0x31})
	require.NoError(t, err)
	assert.Equal(t, int64(42), new(big.Int).SetBytes(out).Int64())

	args, ok := h.last().Params[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "0x70a08231", args["data"])
}

func TestClientCallRPCError(t *testing.T) {
	h := &rpcHandler{errors: map[string]string{"eth_call": "execution reverted"}}
	c := newTestClient(t, h)

	_, err := c.Call(context.Background(), common.HexToAddress("0x01"), nil)
	require.ErrorIs(t, err, apperrors.ErrExternalServiceFailure)

	var rpcErr *JSONRPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "execution reverted", rpcErr.Message)
}

func TestClientReceiptPendingAndMined(t *testing.T) {
	h := &rpcHandler{results: map[string]string{"eth_getTransactionReceipt": `null`}}
	c := newTestClient(t, h)
	hash := common.HexToHash("0xabc")

	r, err := c.GetTransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.Nil(t, r)

	h.mu.Lock()
	h.results["eth_getTransactionReceipt"] = `{"transactionHash":"` + hash.Hex() + `","blockNumber":"0x10","status":"0x1"}`
	h.mu.Unlock()

	r, err = c.GetTransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, uint64(16), r.BlockNumber)
	assert.True(t, r.Success)
	assert.Equal(t, hash, r.TxHash)
}

func TestCallerHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	caller := NewCaller(time.Second, zap.NewNop())
	err := caller.Call(context.Background(), srv.URL, "eth_chainId", nil, nil)
	require.ErrorIs(t, err, apperrors.ErrExternalServiceFailure)
}

func TestCallerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	caller := NewCaller(5*time.Second, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := caller.Call(ctx, srv.URL, "eth_chainId", nil, nil)
	require.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestCallerContextDeadlineExtendsDefaultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(400 * time.Millisecond)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	caller := NewCaller(100*time.Millisecond, zap.NewNop())

	err := caller.Call(context.Background(), srv.URL, "eth_chainId", nil, nil)
	require.ErrorIs(t, err, apperrors.ErrTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got string
	require.NoError(t, caller.Call(ctx, srv.URL, "eth_chainId", nil, &got))
	assert.Equal(t, "0x1", got)
}

func TestCallerErrorsOmitURLPathAndQuery(t *testing.T) {
	h := &rpcHandler{errors: map[string]string{"eth_chainId": "rate limited"}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	caller := NewCaller(time.Second, zap.NewNop())
	err := caller.Call(context.Background(), srv.URL+"/v2/secret-key?token=secret-token", "eth_chainId", nil, nil)
	require.ErrorIs(t, err, apperrors.ErrExternalServiceFailure)
	assert.Contains(t, err.Error(), srv.URL)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestCallerUnsupportedScheme(t *testing.T) {
	caller := NewCaller(time.Second, zap.NewNop())
	err := caller.Call(context.Background(), "ftp://example.org", "eth_chainId", nil, nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCallerWebSocket(t *testing.T) {
	h := &rpcHandler{results: map[string]string{"eth_blockNumber": `"0x1b4"`}}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, h.respond(msg))
	}))
	defer srv.Close()

	wsURL := entity.RPCURL("ws" + strings.TrimPrefix(srv.URL, "http"))
	checker := NewChecker(NewCaller(2*time.Second, zap.NewNop()), zap.NewNop())

	ok, latency, err := checker.CheckRPC(context.Background(), wsURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Positive(t, latency)
	assert.Equal(t, "eth_blockNumber", h.last().Method)
}

func TestProviderCachesClients(t *testing.T) {
	lookup := staticLookup{11155111: {ChainID: 11155111, RPCURL: "https://rpc.sepolia.org"}}
	p := NewProvider(lookup, NewCaller(time.Second, zap.NewNop()), zap.NewNop())

	a, err := p.ReaderFor(11155111)
	require.NoError(t, err)
	b, err := p.ReaderFor(11155111)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = p.ReaderFor(1)
	require.ErrorIs(t, err, domain.ErrChainNotFound)
}

type staticLookup map[int64]entity.ChainConfig

func (s staticLookup) GetChainByID(id int64) (entity.ChainConfig, bool) {
	c, ok := s[id]
	return c, ok
}

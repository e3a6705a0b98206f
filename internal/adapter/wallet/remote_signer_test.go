package wallet

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/adapter/rpc"
	"wallet-orchestrator/internal/config"
	"wallet-orchestrator/internal/domain/entity"
	"wallet-orchestrator/internal/pkg/apperrors"
)

const txHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

func signerServer(t *testing.T, hits *atomic.Int32, check func(args map[string]interface{})) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		var req rpc.JSONRPCRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "eth_sendTransaction", req.Method)
		if check != nil {
			args, _ := req.Params[0].(map[string]interface{})
			check(args)
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + txHash + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRemoteSignerRoutesBySponsorship(t *testing.T) {
	var plain, sponsored atomic.Int32
	plainURL := signerServer(t, &plain, func(args map[string]interface{}) {
		assert.Equal(t, "0x2386f26fc10000", args["value"])
		assert.Equal(t, "0xaa36a7", args["chainId"])
	})
	sponsoredURL := signerServer(t, &sponsored, nil)

	s, err := NewRemoteSigner(config.WalletConfig{
		Address:            "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		SignerURL:          plainURL,
		SponsoredSignerURL: sponsoredURL,
	}, rpc.NewCaller(time.Second, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	assert.True(t, s.CanSponsor())

	to := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	hash, err := s.SendTransaction(context.Background(), entity.TxRequest{
		ChainID: 11155111, To: to, Value: big.NewInt(10_000_000_000_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(txHash), hash)
	assert.Equal(t, int32(1), plain.Load())

	_, err = s.SendTransaction(context.Background(), entity.TxRequest{ChainID: 11155111, To: to, Sponsored: true})
	require.NoError(t, err)
	assert.Equal(t, int32(1), sponsored.Load())
}

func TestRemoteSignerWithoutSponsoredEndpoint(t *testing.T) {
	var hits atomic.Int32
	s, err := NewRemoteSigner(config.WalletConfig{
		Address:   "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		SignerURL: signerServer(t, &hits, nil),
	}, rpc.NewCaller(time.Second, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, s.CanSponsor())

	_, err = s.SendTransaction(context.Background(), entity.TxRequest{ChainID: 1, Sponsored: true})
	require.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.Zero(t, hits.Load())
}

func TestNewRemoteSignerValidates(t *testing.T) {
	caller := rpc.NewCaller(time.Second, zap.NewNop())

	_, err := NewRemoteSigner(config.WalletConfig{Address: "nope", SignerURL: "http://x"}, caller, zap.NewNop())
	require.ErrorIs(t, err, apperrors.ErrConfiguration)

	_, err = NewRemoteSigner(config.WalletConfig{
		Address: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
	}, caller, zap.NewNop())
	require.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestRemoteSignerHonoursSubmitDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(400 * time.Millisecond)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + txHash + `"}`))
	}))
	t.Cleanup(srv.Close)

	s, err := NewRemoteSigner(config.WalletConfig{
		Address:   "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		SignerURL: srv.URL,
	}, rpc.NewCaller(100*time.Millisecond, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hash, err := s.SendTransaction(ctx, entity.TxRequest{ChainID: 11155111})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(txHash), hash)
}

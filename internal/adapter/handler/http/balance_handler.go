package http

import (
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/pkg/calldata"
)

type BalanceHandler struct {
	balances port.BalanceService
	logger   *zap.Logger
}

func NewBalanceHandler(balances port.BalanceService, logger *zap.Logger) *BalanceHandler {
	return &BalanceHandler{
		balances: balances,
		logger:   logger.Named("BalanceHandler"),
	}
}

// GetAllBalances returns the balances of an address on every chain, keyed by chain id
func (h *BalanceHandler) GetAllBalances(ctx *fasthttp.RequestCtx) {
	address, ok := h.addressParam(ctx)
	if !ok {
		return
	}

	byChain := h.balances.FetchAllChainsBalances(ctx, address)
	out := make(map[string]interface{}, len(byChain))
	for chainID, balances := range byChain {
		out[strconv.FormatInt(chainID, 10)] = balances
	}
	writeJSON(ctx, h.logger, fasthttp.StatusOK, out)
}

// GetChainBalances returns the cached balances of an address on one chain
func (h *BalanceHandler) GetChainBalances(ctx *fasthttp.RequestCtx) {
	address, ok := h.addressParam(ctx)
	if !ok {
		return
	}
	chainID, ok := chainIDParam(ctx, h.logger)
	if !ok {
		return
	}

	writeJSON(ctx, h.logger, fasthttp.StatusOK, h.balances.CachedAllBalances(ctx, address, chainID))
}

func (h *BalanceHandler) addressParam(ctx *fasthttp.RequestCtx) (string, bool) {
	address, _ := ctx.UserValue("address").(string)
	if _, err := calldata.ParseAddress(address); err != nil {
		h.logger.Warn("Rejected balance request", zap.String("address", address), zap.Error(err))
		writeError(ctx, h.logger, err)
		return "", false
	}
	return address, true
}

package http

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/application/port"
)

type PoolHandler struct {
	pools  port.PoolService
	logger *zap.Logger
}

func NewPoolHandler(pools port.PoolService, logger *zap.Logger) *PoolHandler {
	return &PoolHandler{
		pools:  pools,
		logger: logger.Named("PoolHandler"),
	}
}

// GetDefaultPool returns analytics for the configured pool
func (h *PoolHandler) GetDefaultPool(ctx *fasthttp.RequestCtx) {
	h.respond(ctx, "")
}

// GetPool returns analytics for the pool in the path
func (h *PoolHandler) GetPool(ctx *fasthttp.RequestCtx) {
	poolID, _ := ctx.UserValue("poolId").(string)
	h.respond(ctx, poolID)
}

func (h *PoolHandler) respond(ctx *fasthttp.RequestCtx, poolID string) {
	analytics, err := h.pools.GetPoolAnalytics(ctx, poolID)
	if err != nil {
		h.logger.Warn("Failed to get pool analytics", zap.String("poolId", poolID), zap.Error(err))
		writeError(ctx, h.logger, err)
		return
	}
	writeJSON(ctx, h.logger, fasthttp.StatusOK, analytics)
}

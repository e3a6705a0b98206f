package http

import (
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	handler "wallet-orchestrator/internal/adapter/handler/http"
)

// Handlers groups the handlers served by the API.
type Handlers struct {
	Chain   *handler.ChainHandler
	Balance *handler.BalanceHandler
	Wallet  *handler.WalletHandler
	Pool    *handler.PoolHandler
}

// RegisterRoutes sets up the application routes and common health checks.
func RegisterRoutes(r *router.Router, h Handlers, logger *zap.Logger) {
	logger.Info("Setting up application-specific routes...")

	r.GET("/chains", h.Chain.GetAllChains)
	r.GET("/chains/{chainId:[0-9]+}/tokens", h.Chain.GetChainTokens)

	r.GET("/balances/{address}", h.Balance.GetAllBalances)
	r.GET("/balances/{address}/{chainId:[0-9]+}", h.Balance.GetChainBalances)

	r.POST("/quotes", h.Wallet.RequestQuote)
	r.POST("/transfers", h.Wallet.SendTransfer)
	r.POST("/swaps", h.Wallet.ExecuteSwap)
	r.GET("/activity", h.Wallet.RecentActivity)

	r.GET("/pools", h.Pool.GetDefaultPool)
	r.GET("/pools/{poolId}", h.Pool.GetPool)

	logger.Info("Setting up health check routes...")
	r.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	})
	r.GET("/health/rpc", h.Chain.CheckEndpoints)

	logger.Info("All routes registered.")
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(logger *zap.Logger, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		logger.Info("Request handled",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("uri", ctx.RequestURI()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

package http

import (
	"fmt"
	"math/big"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/application"
	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
)

const (
	sessionHeader    = "X-Session-ID"
	defaultSession   = "default"
	sessionTTL       = 30 * time.Minute
	defaultActivity  = 20
	maxActivityLimit = 200
)

// SwapRequest is the body of POST /quotes and POST /swaps. A missing
// slippage falls back to the configured default.
type SwapRequest struct {
	TokenIn         string   `json:"tokenIn"`
	TokenOut        string   `json:"tokenOut"`
	AmountIn        string   `json:"amountIn"`
	SlippagePercent *float64 `json:"slippagePercent,omitempty"`
	Recipient       string   `json:"recipient,omitempty"`
	ChainID         int64    `json:"chainId"`
}

// QuoteResponse renders a SwapQuote with base-unit amounts as decimal strings.
type QuoteResponse struct {
	RequestID          uint64            `json:"requestId"`
	AmountIn           string            `json:"amountIn"`
	AmountOut          string            `json:"amountOut"`
	AmountOutFormatted string            `json:"amountOutFormatted"`
	MinimumAmountOut   string            `json:"minimumAmountOut"`
	PriceImpact        float64           `json:"priceImpact"`
	Route              string            `json:"route"`
	FeeTier            uint32            `json:"feeTier"`
	QuotedAt           time.Time         `json:"quotedAt"`
	Params             entity.SwapParams `json:"params"`
}

// ActionResponse is returned for accepted transfers and swaps.
type ActionResponse struct {
	Result  interface{}           `json:"result"`
	Status  entity.StatusSnapshot `json:"status"`
	History []entity.TxState      `json:"history"`
}

// WalletHandler serves the actions that need the configured wallet. Quote
// trackers are kept per session and expire when idle.
type WalletHandler struct {
	txs             port.TransactionService
	swaps           port.SwapService
	wallet          domainService.Wallet
	defaultSlippage float64
	sessions        *cache.Cache
	logger          *zap.Logger
}

// NewWalletHandler creates the handler. wallet may be nil, in which case
// transfers and swaps fail with ErrNoWallet.
func NewWalletHandler(
	txs port.TransactionService,
	swaps port.SwapService,
	wallet domainService.Wallet,
	defaultSlippage float64,
	logger *zap.Logger,
) *WalletHandler {
	return &WalletHandler{
		txs:             txs,
		swaps:           swaps,
		wallet:          wallet,
		defaultSlippage: defaultSlippage,
		sessions:        cache.New(sessionTTL, 2*sessionTTL),
		logger:          logger.Named("WalletHandler"),
	}
}

// RequestQuote quotes a swap for the caller's session, superseding any quote in flight
func (h *WalletHandler) RequestQuote(ctx *fasthttp.RequestCtx) {
	var req SwapRequest
	if !decodeBody(ctx, h.logger, &req) {
		return
	}

	quote, err := h.tracker(ctx).Request(ctx, h.swapParams(req))
	if err != nil {
		h.logger.Warn("Quote request failed", zap.Error(err))
		writeError(ctx, h.logger, err)
		return
	}
	writeJSON(ctx, h.logger, fasthttp.StatusOK, QuoteView(quote))
}

// SendTransfer submits a native or ERC-20 transfer through the wallet
func (h *WalletHandler) SendTransfer(ctx *fasthttp.RequestCtx) {
	var params entity.TransferParams
	if !decodeBody(ctx, h.logger, &params) {
		return
	}

	status := entity.NewSponsoredTransactionStatus()
	result, err := h.txs.SendSponsoredTransaction(ctx, h.wallet, params, status)
	if err != nil {
		writeStatusError(ctx, h.logger, err, status)
		return
	}
	writeJSON(ctx, h.logger, fasthttp.StatusOK, ActionResponse{
		Result:  result,
		Status:  status.Snapshot(),
		History: status.History(),
	})
}

// ExecuteSwap executes the session's latest quote
func (h *WalletHandler) ExecuteSwap(ctx *fasthttp.RequestCtx) {
	var req SwapRequest
	if !decodeBody(ctx, h.logger, &req) {
		return
	}

	quote, ok := h.tracker(ctx).Latest()
	if !ok {
		writeError(ctx, h.logger, fmt.Errorf("%w: request a quote first", domain.ErrStaleQuote))
		return
	}

	status := entity.NewSponsoredTransactionStatus()
	result, err := h.swaps.ExecuteSwap(ctx, h.wallet, h.swapParams(req), quote, status)
	if err != nil {
		writeStatusError(ctx, h.logger, err, status)
		return
	}
	writeJSON(ctx, h.logger, fasthttp.StatusOK, ActionResponse{
		Result:  result,
		Status:  status.Snapshot(),
		History: status.History(),
	})
}

// RecentActivity lists recorded submissions, newest first
func (h *WalletHandler) RecentActivity(ctx *fasthttp.RequestCtx) {
	limit := defaultActivity
	if raw := ctx.QueryArgs().GetUintOrZero("limit"); raw > 0 {
		limit = raw
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	records, err := h.txs.RecentActivity(ctx, limit)
	if err != nil {
		h.logger.Error("Failed to list activity", zap.Error(err))
		writeError(ctx, h.logger, err)
		return
	}
	writeJSON(ctx, h.logger, fasthttp.StatusOK, records)
}

func (h *WalletHandler) swapParams(req SwapRequest) entity.SwapParams {
	slippage := h.defaultSlippage
	if req.SlippagePercent != nil {
		slippage = *req.SlippagePercent
	}
	return entity.SwapParams{
		TokenIn:         req.TokenIn,
		TokenOut:        req.TokenOut,
		AmountIn:        req.AmountIn,
		SlippagePercent: slippage,
		Recipient:       req.Recipient,
		ChainID:         req.ChainID,
	}
}

// tracker returns the session's quote tracker, creating it on first use.
func (h *WalletHandler) tracker(ctx *fasthttp.RequestCtx) *application.QuoteTracker {
	session := string(ctx.Request.Header.Peek(sessionHeader))
	if session == "" {
		session = defaultSession
	}

	if x, found := h.sessions.Get(session); found {
		if t, ok := x.(*application.QuoteTracker); ok {
			// Touch to extend the idle window.
			h.sessions.SetDefault(session, t)
			return t
		}
	}

	t := application.NewQuoteTracker(h.swaps, h.logger.With(zap.String("session", session)))
	if err := h.sessions.Add(session, t, cache.DefaultExpiration); err != nil {
		// Lost a race with a concurrent request of the same session.
		if x, found := h.sessions.Get(session); found {
			if existing, ok := x.(*application.QuoteTracker); ok {
				return existing
			}
		}
	}
	return t
}

// QuoteView renders q for JSON output.
func QuoteView(q *entity.SwapQuote) QuoteResponse {
	return QuoteResponse{
		RequestID:          q.RequestID,
		AmountIn:           bigString(q.AmountIn),
		AmountOut:          bigString(q.AmountOut),
		AmountOutFormatted: q.AmountOutFormatted,
		MinimumAmountOut:   bigString(q.MinimumAmountOut),
		PriceImpact:        q.PriceImpact,
		Route:              q.Route,
		FeeTier:            q.FeeTier,
		QuotedAt:           q.QuotedAt,
		Params:             q.Params,
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/application/port"
	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	"wallet-orchestrator/internal/pkg/apperrors"
)

type ChainHandler struct {
	chains port.ChainService
	logger *zap.Logger
}

func NewChainHandler(chains port.ChainService, logger *zap.Logger) *ChainHandler {
	return &ChainHandler{
		chains: chains,
		logger: logger.Named("ChainHandler"),
	}
}

// GetAllChains handles requests for every supported chain, default first
func (h *ChainHandler) GetAllChains(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, h.logger, fasthttp.StatusOK, h.chains.GetAllChains(ctx))
}

// GetChainTokens handles requests for the configured tokens of a chain
func (h *ChainHandler) GetChainTokens(ctx *fasthttp.RequestCtx) {
	chainID, ok := chainIDParam(ctx, h.logger)
	if !ok {
		return
	}

	tokens, err := h.chains.GetChainTokens(ctx, chainID)
	if err != nil {
		h.logger.Warn("Failed to get tokens for chain", zap.Int64("chainId", chainID), zap.Error(err))
		writeError(ctx, h.logger, err)
		return
	}
	writeJSON(ctx, h.logger, fasthttp.StatusOK, tokens)
}

// CheckEndpoints checks every chain's RPC endpoint
func (h *ChainHandler) CheckEndpoints(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, h.logger, fasthttp.StatusOK, h.chains.CheckEndpoints(ctx))
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error  string                 `json:"error"`
	Stage  entity.Stage           `json:"stage,omitempty"`
	Status *entity.StatusSnapshot `json:"status,omitempty"`
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameToken),
		errors.Is(err, domain.ErrInvalidSlippage),
		errors.Is(err, apperrors.ErrInvalidInput):
		return fasthttp.StatusBadRequest
	case errors.Is(err, domain.ErrChainNotFound),
		errors.Is(err, domain.ErrTokenNotFound),
		errors.Is(err, apperrors.ErrNotFound):
		return fasthttp.StatusNotFound
	case errors.Is(err, domain.ErrDEXUnsupported):
		return fasthttp.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoWallet):
		return fasthttp.StatusPreconditionFailed
	case errors.Is(err, domain.ErrStaleQuote):
		return fasthttp.StatusConflict
	case errors.Is(err, apperrors.ErrConfiguration):
		return fasthttp.StatusServiceUnavailable
	case errors.Is(err, domain.ErrConfirmationTimeout),
		errors.Is(err, apperrors.ErrTimeout):
		return fasthttp.StatusGatewayTimeout
	case errors.Is(err, domain.ErrQuoteUnavailable),
		errors.Is(err, domain.ErrAllowanceCheckFailed),
		errors.Is(err, domain.ErrSubmissionFailed),
		errors.Is(err, domain.ErrTransactionReverted),
		errors.Is(err, apperrors.ErrExternalServiceFailure):
		return fasthttp.StatusBadGateway
	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, logger *zap.Logger, code int, v interface{}) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(code)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		// Response already started, can't set error code
	}
}

func writeError(ctx *fasthttp.RequestCtx, logger *zap.Logger, err error) {
	writeJSON(ctx, logger, StatusFor(err), ErrorResponse{Error: err.Error(), Stage: entity.StageOf(err)})
}

func writeStatusError(ctx *fasthttp.RequestCtx, logger *zap.Logger, err error, status *entity.SponsoredTransactionStatus) {
	snap := status.Snapshot()
	writeJSON(ctx, logger, StatusFor(err), ErrorResponse{
		Error:  err.Error(),
		Stage:  entity.StageOf(err),
		Status: &snap,
	})
}

func chainIDParam(ctx *fasthttp.RequestCtx, logger *zap.Logger) (int64, bool) {
	chainIDStr, ok := ctx.UserValue("chainId").(string)
	if !ok {
		logger.Error("Failed to get chainId from context")
		writeError(ctx, logger, fmt.Errorf("%w: missing chainId", apperrors.ErrInvalidInput))
		return 0, false
	}

	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		logger.Warn("Failed to parse chainId", zap.String("chainIdStr", chainIDStr), zap.Error(err))
		writeError(ctx, logger, fmt.Errorf("%w: chainId %q", apperrors.ErrInvalidInput, chainIDStr))
		return 0, false
	}
	return chainID, true
}

func decodeBody(ctx *fasthttp.RequestCtx, logger *zap.Logger, v interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		logger.Warn("Failed to decode request body", zap.Error(err))
		writeError(ctx, logger, fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrInvalidInput, err))
		return false
	}
	return true
}

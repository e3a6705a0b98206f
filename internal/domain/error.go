package domain

import "errors"

var (
	// ErrChainNotFound means the requested chain is not in the registry.
	ErrChainNotFound = errors.New("chain not found")

	// ErrTokenNotFound means a token address is not configured for the chain.
	ErrTokenNotFound = errors.New("token not configured for chain")

	// ErrDEXUnsupported means the chain has no router/quoter configured.
	ErrDEXUnsupported = errors.New("dex not supported on chain")

	// ErrNoWallet means no wallet is connected for the action.
	ErrNoWallet = errors.New("no wallet connected")

	// ErrInvalidAddress means an address is not a well-formed 20-byte hex string.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidAmount means an amount is not a positive finite decimal or exceeds token precision.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrSameToken means tokenIn and tokenOut are identical.
	ErrSameToken = errors.New("tokenIn and tokenOut must differ")

	// ErrInvalidSlippage means the slippage percent is outside [0, 100).
	ErrInvalidSlippage = errors.New("slippage percent must be in [0, 100)")

	// ErrQuoteUnavailable means the quoter could not produce a quote.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrStaleQuote means a quote was superseded by a newer request or is too old to execute.
	ErrStaleQuote = errors.New("quote is stale")

	// ErrAllowanceCheckFailed means the current allowance could not be read.
	ErrAllowanceCheckFailed = errors.New("allowance check failed")

	// ErrSubmissionFailed means the wallet or provider rejected the transaction.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrTransactionReverted means the transaction was included but reverted.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrConfirmationTimeout means the transaction was not included within the polling window.
	ErrConfirmationTimeout = errors.New("transaction not confirmed in time")
)

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallet-orchestrator/internal/domain"
	"wallet-orchestrator/internal/domain/entity"
	domainService "wallet-orchestrator/internal/domain/service"
)

const (
	defaultConfirmationPoll    = 2 * time.Second
	defaultConfirmationTimeout = 2 * time.Minute
)

// receiptWaiter polls for a transaction receipt until it is included or the
// confirmation window closes.
type receiptWaiter struct {
	readers     domainService.ChainReaderProvider
	poll        time.Duration
	timeout     time.Duration
	readTimeout time.Duration
	logger      *zap.Logger
}

func newReceiptWaiter(
	readers domainService.ChainReaderProvider,
	poll, timeout, readTimeout time.Duration,
	logger *zap.Logger,
) *receiptWaiter {
	if poll <= 0 {
		poll = defaultConfirmationPoll
	}
	if timeout <= 0 {
		timeout = defaultConfirmationTimeout
	}
	return &receiptWaiter{
		readers:     readers,
		poll:        poll,
		timeout:     timeout,
		readTimeout: readTimeout,
		logger:      logger.Named("ReceiptWaiter"),
	}
}

// WaitMined returns the receipt of a successful transaction. A reverted
// transaction yields ErrTransactionReverted and an expired window
// ErrConfirmationTimeout. Receipt read errors are retried until then.
func (w *receiptWaiter) WaitMined(ctx context.Context, chainID int64, hash common.Hash) (*entity.Receipt, error) {
	reader, err := w.readers.ReaderFor(chainID)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++
		receipt, err := w.fetch(waitCtx, reader, hash)
		switch {
		case err != nil:
			w.logger.Debug("Receipt poll failed", zap.String("hash", hash.Hex()), zap.Error(err))
		case receipt != nil && !receipt.Success:
			return receipt, fmt.Errorf("%w: %s in block %d", domain.ErrTransactionReverted, hash.Hex(), receipt.BlockNumber)
		case receipt != nil:
			w.logger.Debug("Transaction mined",
				zap.String("hash", hash.Hex()),
				zap.Uint64("block", receipt.BlockNumber),
				zap.Int("attempts", attempts),
			)
			return receipt, nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s after %v", domain.ErrConfirmationTimeout, hash.Hex(), w.timeout)
		}
	}
}

func (w *receiptWaiter) fetch(ctx context.Context, reader domainService.ChainReader, hash common.Hash) (*entity.Receipt, error) {
	if w.readTimeout <= 0 {
		return reader.GetTransactionReceipt(ctx, hash)
	}
	readCtx, cancel := context.WithTimeout(ctx, w.readTimeout)
	defer cancel()
	return reader.GetTransactionReceipt(readCtx, hash)
}

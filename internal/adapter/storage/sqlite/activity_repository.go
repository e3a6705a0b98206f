package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"wallet-orchestrator/internal/domain/entity"
	domainRepo "wallet-orchestrator/internal/domain/repository"
	"wallet-orchestrator/internal/pkg/apperrors"
)

// Compile-time check
var _ domainRepo.ActivityRepository = (*ActivityRepository)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		stage TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		sponsored INTEGER NOT NULL DEFAULT 0,
		tx_hash TEXT,
		state TEXT NOT NULL,
		error TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS activity_created_at ON activity (created_at DESC);
`

// ActivityRepository is a sqlite-backed ledger of submitted stages.
type ActivityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates or opens the ledger at path, creating its directory if needed.
func Open(path string, logger *zap.Logger) (*ActivityRepository, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create ledger directory %s: %v", apperrors.ErrConfiguration, dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open ledger %s: %v", apperrors.ErrConfiguration, path, err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init ledger schema: %v", apperrors.ErrConfiguration, err)
	}

	logger.Info("Opened activity ledger", zap.String("path", path))
	return &ActivityRepository{db: db, logger: logger.Named("ActivityLedger")}, nil
}

// Close releases the database handle.
func (r *ActivityRepository) Close() error {
	return r.db.Close()
}

// Save inserts or replaces a record. A missing id or timestamp is filled in.
func (r *ActivityRepository) Save(ctx context.Context, rec entity.ActivityRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO activity
		(id, kind, stage, chain_id, sponsored, tx_hash, state, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Kind, string(rec.Stage), rec.ChainID, rec.Sponsored,
		nullable(rec.TxHash), string(rec.State), nullable(rec.Error), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("%w: save activity %s: %v", apperrors.ErrInternal, rec.ID, err)
	}

	r.logger.Debug("Saved activity", zap.String("id", rec.ID), zap.String("state", string(rec.State)))
	return nil
}

// List returns up to limit records, newest first.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]entity.ActivityRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, stage, chain_id, sponsored, tx_hash, state, error, created_at
		FROM activity ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list activity: %v", apperrors.ErrInternal, err)
	}
	defer rows.Close()

	out := make([]entity.ActivityRecord, 0, limit)
	for rows.Next() {
		var (
			rec          entity.ActivityRecord
			stage, state string
			txHash, msg  sql.NullString
			createdAt    int64
		)
		if err := rows.Scan(&rec.ID, &rec.Kind, &stage, &rec.ChainID, &rec.Sponsored,
			&txHash, &state, &msg, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan activity: %v", apperrors.ErrInternal, err)
		}
		rec.Stage = entity.Stage(stage)
		rec.State = entity.TxState(state)
		rec.TxHash = txHash.String
		rec.Error = msg.String
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

// CheckpointRepository implements storage.CheckpointRepository on PostgreSQL.
type CheckpointRepository struct {
	pool *pgxpool.Pool
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(pool *pgxpool.Pool) *CheckpointRepository {
	return &CheckpointRepository{pool: pool}
}

// SaveCheckpoint persists a checkpoint for a processor type.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint.ProcessorType == "" {
		return storage.ErrMissingID
	}
	checkpoint.UpdatedAt = time.Now().UTC()
	query, args, err := saveCheckpointQuery(checkpoint)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint retrieves the checkpoint for a processor type, or nil, nil.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error) {
	query, args, err := loadCheckpointQuery(processorType)
	if err != nil {
		return nil, err
	}
	var (
		cp     core.Checkpoint
		lastID int64
	)
	err = r.pool.QueryRow(ctx, query, args...).Scan(&cp.ProcessorType, &lastID, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	cp.LastID = decodeID(lastID)
	cp.UpdatedAt = cp.UpdatedAt.UTC()
	return &cp, nil
}

// ClearCheckpoint removes the checkpoint for a processor type.
func (r *CheckpointRepository) ClearCheckpoint(ctx context.Context, processorType string) error {
	query, args, err := clearCheckpointQuery(processorType)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}

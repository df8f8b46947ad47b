package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

// CheckpointRepository stores one progress marker per job name.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{backend: backend}
}

// SaveCheckpoint overwrites the marker for checkpoint.ProcessorType and stamps UpdatedAt.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint == nil || checkpoint.ProcessorType == "" {
		return storage.ErrMissingID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	checkpoint.UpdatedAt = time.Now().UTC()
	value := storage.MarshalCheckpoint(checkpoint)
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCheckpointKey(checkpoint.ProcessorType), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadCheckpoint returns the marker for processorType, or nil, nil when the job
// has never saved one.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(processorType))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return err
		}
		return item.Value(func(val []byte) error {
			cp, err := storage.UnmarshalCheckpoint(val)
			checkpoint = cp
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// ClearCheckpoint deletes the marker for processorType. Clearing a missing
// marker is not an error.
func (r *CheckpointRepository) ClearCheckpoint(ctx context.Context, processorType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCheckpointKey(processorType)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

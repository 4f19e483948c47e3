package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// StorageGC reclaims Badger value-log space on a fixed cadence.
// badger.ErrNoRewrite just means there was nothing to collect.
type StorageGC struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewStorageGC(log *slog.Logger, db *badger.DB, interval time.Duration) *StorageGC {
	return &StorageGC{log: log, db: db, interval: interval}
}

func (w *StorageGC) Run(ctx context.Context) error {
	w.log.Info("Starting storage GC", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				w.log.Warn("Value log GC failed", "error", err)
			}
		}
	}
}

// Package persist durable-izes the canvas log without blocking the
// relay path. Writes are coalesced through a quiescence window and are
// best-effort: a failed write is logged and swallowed, never surfaced
// to collaborating sessions.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sketchwire/sketchwire/pkg/canvas"
)

// SnapshotStore is a durable backend for the full canvas snapshot.
// The snapshot is written wholesale on each save; there is no
// incremental format. Implementations must be safe for concurrent use.
type SnapshotStore interface {
	// Save overwrites the stored snapshot.
	Save(ctx context.Context, data []byte) error

	// Load returns the last stored snapshot.
	// Returns (nil, nil) if no snapshot exists.
	Load(ctx context.Context) ([]byte, error)

	// Close releases backend resources.
	Close() error
}

// LoadLog reads the last durable snapshot from the store. A missing,
// unreadable, or corrupt snapshot yields an empty log: the service must
// still start and accept new collaboration.
func LoadLog(ctx context.Context, store SnapshotStore, logger *slog.Logger) canvas.Log {
	if store == nil {
		return canvas.Log{}
	}

	data, err := store.Load(ctx)
	if err != nil {
		logger.Warn("snapshot load failed, starting empty", "error", err)
		return canvas.Log{}
	}
	if data == nil {
		return canvas.Log{}
	}

	var log canvas.Log
	if err := json.Unmarshal(data, &log); err != nil {
		logger.Warn("snapshot corrupt, starting empty", "error", err)
		return canvas.Log{}
	}

	logger.Info("snapshot loaded", "drawings", len(log.Drawings), "texts", len(log.Texts))
	return log
}

// Package archive exports expired analysis snapshots to zstd-compressed
// JSON-lines files and removes them from the database. One run drains all
// rows past the retention cutoff in batches, producing one file per run.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"bloomwatch/internal/types"
)

// SnapshotStore is the slice of the snapshot repository the archiver needs.
type SnapshotStore interface {
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*types.Snapshot, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// Archiver drains snapshots older than the retention window into compressed
// archive files. Deletion happens only after the batch is durably on disk, so
// a crash mid-run duplicates rows in the archive rather than losing them.
type Archiver struct {
	store     SnapshotStore
	dir       string
	retention time.Duration
	batchSize int
	logger    *slog.Logger
	nowFn     func() time.Time
}

// NewArchiver creates an Archiver writing into dir. retentionDays bounds how
// long snapshots stay queryable; batchSize bounds per-iteration memory.
func NewArchiver(store SnapshotStore, dir string, retentionDays int, logger *slog.Logger) *Archiver {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Archiver{
		store:     store,
		dir:       dir,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		batchSize: 500,
		logger:    logger,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// RunResult summarizes one archiver pass.
type RunResult struct {
	Archived int
	Deleted  int64
	File     string
}

// Run performs one archive pass. When nothing is past the cutoff it returns
// an empty result and writes no file.
func (a *Archiver) Run(ctx context.Context) (RunResult, error) {
	now := a.nowFn()
	cutoff := now.Add(-a.retention)

	first, err := a.store.ListOlderThan(ctx, cutoff, a.batchSize)
	if err != nil {
		return RunResult{}, err
	}
	if len(first) == 0 {
		return RunResult{}, nil
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return RunResult{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create archive directory", err)
	}

	// Write to a temp name and rename on success so partial files are never
	// mistaken for complete archives.
	finalPath := filepath.Join(a.dir, fmt.Sprintf("snapshots-%s.jsonl.zst", now.Format("20060102-150405")))
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return RunResult{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create archive file", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return RunResult{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create zstd writer", err)
	}
	enc := json.NewEncoder(zw)

	result := RunResult{File: finalPath}
	var pendingIDs []string

	batch := first
	for len(batch) > 0 {
		ids := make([]string, 0, len(batch))
		for _, snap := range batch {
			if err := enc.Encode(archiveRecord(snap)); err != nil {
				zw.Close()
				return RunResult{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode snapshot", err)
			}
			ids = append(ids, snap.ID)
		}
		result.Archived += len(batch)
		pendingIDs = append(pendingIDs, ids...)

		if len(batch) < a.batchSize {
			break
		}
		// Rows already written are still in the table until the final delete,
		// so over-fetch by the pending count and filter them out.
		next, err := a.store.ListOlderThan(ctx, cutoff, a.batchSize+len(pendingIDs))
		if err != nil {
			zw.Close()
			return RunResult{}, err
		}
		batch = excludeSeen(next, pendingIDs)
		if len(batch) > a.batchSize {
			batch = batch[:a.batchSize]
		}
	}

	if err := zw.Close(); err != nil {
		return RunResult{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to finish archive stream", err)
	}
	if err := f.Close(); err != nil {
		return RunResult{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to close archive file", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return RunResult{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to finalize archive file", err)
	}

	deleted, err := a.store.DeleteByIDs(ctx, pendingIDs)
	if err != nil {
		// The archive file stands; the rows will be re-archived next run.
		return result, err
	}
	result.Deleted = deleted

	if a.logger != nil {
		a.logger.InfoContext(ctx, "archive pass complete",
			slog.Int("archived", result.Archived),
			slog.Int64("deleted", result.Deleted),
			slog.String("file", result.File),
		)
	}
	return result, nil
}

// record is the archived representation of one snapshot: the summary columns
// plus the full analysis payload inlined as raw JSON.
type record struct {
	ID          string            `json:"id"`
	SiteID      string            `json:"site_id"`
	Location    types.Location    `json:"location"`
	RiskScore   float64           `json:"risk_score"`
	RiskLevel   types.RiskLevel   `json:"risk_level"`
	WHOSeverity types.WHOSeverity `json:"who_severity"`
	MuPerDay    float64           `json:"mu_per_day"`
	Confidence  types.Confidence  `json:"confidence"`
	Analysis    json.RawMessage   `json:"analysis,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func archiveRecord(snap *types.Snapshot) record {
	return record{
		ID:          snap.ID,
		SiteID:      snap.SiteID,
		Location:    snap.Location,
		RiskScore:   snap.RiskScore,
		RiskLevel:   snap.RiskLevel,
		WHOSeverity: snap.WHOSeverity,
		MuPerDay:    snap.MuPerDay,
		Confidence:  snap.Confidence,
		Analysis:    json.RawMessage(snap.Payload),
		CreatedAt:   snap.CreatedAt,
	}
}

func excludeSeen(batch []*types.Snapshot, seen []string) []*types.Snapshot {
	if len(batch) == 0 {
		return batch
	}
	seenSet := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}
	out := batch[:0]
	for _, snap := range batch {
		if _, ok := seenSet[snap.ID]; !ok {
			out = append(out, snap)
		}
	}
	return out
}

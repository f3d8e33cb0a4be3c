package photos

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
)

// BatchEntry identifies one uploaded photo inside a batch confirmation.
type BatchEntry struct {
	PhotoID    string
	PropertyID string
	S3Key      string
	FileSize   *int64
}

// BatchItemResult is the per-photo outcome of a batch confirmation.
type BatchItemResult struct {
	PhotoID string `json:"photoId"`
	URL     string `json:"url,omitempty"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// BatchResult summarizes a batch confirmation.
type BatchResult struct {
	Requested int               `json:"requested"`
	Confirmed int               `json:"confirmed"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

// ConfirmBatch confirms many uploads at once. Entries are validated up
// front, one malformed entry rejects the whole batch before any write. The
// batch is grouped by property; groups run concurrently under a worker
// limit, photos within a group strictly in order. One photo's failure never
// affects its siblings.
//
// Confirmations run relaxed; callers that need exact counters immediately
// should recompute them afterwards.
func (s *Service) ConfirmBatch(ctx context.Context, entries []BatchEntry) (*BatchResult, error) {
	start := s.now()
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no photos in batch request")
	}
	for i := range entries {
		if err := validateBatchEntry(entries[i]); err != nil {
			return nil, err
		}
	}

	// Groups hold entry indices so duplicate photo ids inside one batch keep
	// their own result slots.
	groups := make(map[string][]int)
	for i, e := range entries {
		groups[e.PropertyID] = append(groups[e.PropertyID], i)
	}
	// Deterministic scheduling order keeps logs and tests stable.
	propertyIDs := make([]string, 0, len(groups))
	for id := range groups {
		propertyIDs = append(propertyIDs, id)
	}
	sort.Strings(propertyIDs)

	results := make([]BatchItemResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchWorkers)
	for _, propertyID := range propertyIDs {
		group := groups[propertyID]
		g.Go(func() error {
			for _, i := range group {
				results[i] = s.confirmBatchEntry(gctx, entries[i])
			}
			return nil
		})
	}
	// Workers report per-item failures through results, never as errors, so
	// the only wait error is context cancellation.
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "batch confirmation interrupted")
	}

	out := &BatchResult{
		Requested: len(entries),
		Results:   results,
	}
	for i := range results {
		if results[i].Error == "" {
			out.Confirmed++
		} else {
			out.Failed++
		}
	}
	s.metrics.ObserveBatch(out.Requested, s.now().Sub(start).Seconds())
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"requested": out.Requested,
		"confirmed": out.Confirmed,
		"failed":    out.Failed,
	}), "batch confirmation finished")
	return out, nil
}

func (s *Service) confirmBatchEntry(ctx context.Context, entry BatchEntry) BatchItemResult {
	res, err := s.Confirm(ctx, ConfirmRequest{
		PhotoID:    entry.PhotoID,
		PropertyID: entry.PropertyID,
		S3Key:      entry.S3Key,
		FileSize:   entry.FileSize,
	}, ModeRelaxed)
	if err != nil {
		s.log.Warn(s.log.WithFields(ctx, map[string]any{
			"photo_id":    entry.PhotoID,
			"property_id": entry.PropertyID,
			"error":       err.Error(),
		}), "batch entry confirmation failed")
		return BatchItemResult{
			PhotoID: entry.PhotoID,
			Status:  "failed",
			Error:   err.Error(),
		}
	}
	return BatchItemResult{
		PhotoID: res.PhotoID,
		URL:     res.URL,
		Status:  res.Status,
	}
}

// validateBatchEntry checks the entry's key shape and that the key's
// embedded property matches the claimed owner.
func validateBatchEntry(entry BatchEntry) error {
	if entry.PhotoID == "" || entry.PropertyID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch entry missing photo or property id")
	}
	return checkKeyOwnership(entry.S3Key, entry.PropertyID)
}

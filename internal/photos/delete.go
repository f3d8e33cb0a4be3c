package photos

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
)

// DeleteBatchResult summarizes a batch delete.
type DeleteBatchResult struct {
	Requested int      `json:"requested"`
	Deleted   int      `json:"deleted"`
	Missing   []string `json:"missing,omitempty"`
}

// Delete removes a photo: its stored object, its analysis record, its
// metadata row, and finally the owner's counter. Object and counter
// failures are logged and absorbed; the row delete is the step that must
// succeed.
func (s *Service) Delete(ctx context.Context, photoID string) error {
	photo, err := s.photos.Get(ctx, photoID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photo metadata")
	}
	if photo == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("photo %s not found", photoID))
	}

	if err := s.store.Delete(ctx, photo.S3Key); err != nil {
		s.log.Warn(s.log.WithFields(ctx, map[string]any{
			"photo_id": photoID,
			"s3_key":   photo.S3Key,
			"error":    err.Error(),
		}), "object delete failed, continuing")
	}
	if err := s.analyses.DeleteByPhoto(ctx, photoID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting analysis record")
	}
	if err := s.photos.Delete(ctx, photoID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting photo metadata")
	}

	if photo.CountsAsUploaded() {
		if err := s.properties.AdjustPhotoCount(ctx, photo.PropertyID, -1); err != nil {
			// The counter is derived; recomputation repairs it.
			s.log.Warn(s.log.WithFields(ctx, map[string]any{
				"property_id": photo.PropertyID,
				"error":       err.Error(),
			}), "photo count decrement failed, continuing")
		}
	}
	s.log.Info(s.log.WithPhotoID(ctx, photoID), "photo deleted")
	return nil
}

// DeleteBatch removes many photos at once. Unknown ids are reported, not
// errors. Stored objects are deleted in bulk best-effort; rows are deleted
// in chunks; per-property counter adjustments are grouped and failures
// logged per property.
func (s *Service) DeleteBatch(ctx context.Context, photoIDs []string) (*DeleteBatchResult, error) {
	if len(photoIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no photo ids in batch request")
	}
	rows, err := s.photos.BatchGet(ctx, photoIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photo metadata")
	}
	found := make(map[string]bool, len(rows))
	keys := make([]string, 0, len(rows))
	ids := make([]string, 0, len(rows))
	decrements := make(map[string]int)
	for _, row := range rows {
		found[row.PhotoID] = true
		keys = append(keys, row.S3Key)
		ids = append(ids, row.PhotoID)
		if row.CountsAsUploaded() {
			decrements[row.PropertyID]++
		}
	}

	res := &DeleteBatchResult{Requested: len(photoIDs)}
	for _, id := range photoIDs {
		if !found[id] {
			res.Missing = append(res.Missing, id)
		}
	}
	if len(ids) == 0 {
		return res, nil
	}

	if err := s.store.DeleteAll(ctx, keys); err != nil {
		s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "bulk object delete failed, continuing")
	}
	if err := s.analyses.DeleteByPhotos(ctx, ids); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting analysis records")
	}
	if err := s.photos.BatchDelete(ctx, ids); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting photo metadata")
	}
	res.Deleted = len(ids)

	var adjustErr error
	for propertyID, count := range decrements {
		if err := s.properties.AdjustPhotoCount(ctx, propertyID, -count); err != nil {
			adjustErr = multierr.Append(adjustErr, fmt.Errorf("property %s: %w", propertyID, err))
		}
	}
	if adjustErr != nil {
		s.log.Warn(s.log.WithField(ctx, "error", adjustErr.Error()), "photo count decrements failed, continuing")
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"requested": res.Requested,
		"deleted":   res.Deleted,
		"missing":   len(res.Missing),
	}), "photo batch deleted")
	return res, nil
}

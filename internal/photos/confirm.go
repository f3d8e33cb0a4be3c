package photos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blaskocode/RapidUpload/pkg/dynamo"
	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

// ConsistencyMode selects how a confirmation maintains the owning
// property's photo counter.
type ConsistencyMode string

const (
	// ModeStrict flips the row and increments the counter in one
	// transaction. Used for single confirmations.
	ModeStrict ConsistencyMode = "strict"
	// ModeRelaxed flips the row only; the counter is corrected by a later
	// recomputation. Used inside batches, where transactional increments
	// from concurrent workers would contend on the property row.
	ModeRelaxed ConsistencyMode = "relaxed"
)

// ConfirmRequest reports that the client finished a presigned upload. S3Key
// is the key the client uploaded against; it is recorded on the row and the
// public URL is derived from it.
type ConfirmRequest struct {
	PhotoID    string
	PropertyID string
	S3Key      string
	FileSize   *int64
}

// ConfirmResult is the outcome of a confirmation.
type ConfirmResult struct {
	PhotoID    string `json:"photoId"`
	PropertyID string `json:"propertyId"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Idempotent bool   `json:"idempotent"`
}

// Confirm transitions a pending photo row to uploaded and returns the
// photo's public URL. Re-confirming an uploaded photo succeeds without
// writing. Any other state, and any lost race on the pending guard, is a
// conflict.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest, mode ConsistencyMode) (*ConfirmResult, error) {
	res, err := s.confirm(ctx, req, mode)
	s.metrics.ObserveConfirmation(string(mode), confirmOutcome(res, err))
	return res, err
}

func (s *Service) confirm(ctx context.Context, req ConfirmRequest, mode ConsistencyMode) (*ConfirmResult, error) {
	if err := checkKeyOwnership(req.S3Key, req.PropertyID); err != nil {
		return nil, err
	}

	photo, err := s.photos.Get(ctx, req.PhotoID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photo metadata")
	}
	if photo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("photo %s not found", req.PhotoID))
	}
	if photo.PropertyID != req.PropertyID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("photo %s does not belong to property %s", req.PhotoID, req.PropertyID))
	}

	if photo.Status == models.PhotoStatusUploaded {
		return &ConfirmResult{
			PhotoID:    photo.PhotoID,
			PropertyID: photo.PropertyID,
			URL:        s.store.PublicURL(req.S3Key),
			Status:     models.PhotoStatusUploaded,
			Idempotent: true,
		}, nil
	}
	if photo.Status != models.PhotoStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("photo %s is %s, not pending", photo.PhotoID, photo.Status))
	}

	uploadedAt := s.now().UTC().Format(time.RFC3339)
	switch mode {
	case ModeStrict:
		err = s.photos.MarkUploadedWithCount(ctx, photo.PhotoID, photo.PropertyID, req.S3Key, uploadedAt, req.FileSize)
	case ModeRelaxed:
		err = s.photos.MarkUploaded(ctx, photo.PhotoID, req.S3Key, uploadedAt, req.FileSize)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown consistency mode %q", mode))
	}
	if err != nil {
		if errors.Is(err, dynamo.ErrConditionFailed) {
			// Another confirmation, the cleanup sweep, or a property delete
			// won the race.
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("photo %s changed state during confirmation", photo.PhotoID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirming photo upload")
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"photo_id":    photo.PhotoID,
		"property_id": photo.PropertyID,
		"mode":        string(mode),
	}), "photo upload confirmed")
	return &ConfirmResult{
		PhotoID:    photo.PhotoID,
		PropertyID: photo.PropertyID,
		URL:        s.store.PublicURL(req.S3Key),
		Status:     models.PhotoStatusUploaded,
	}, nil
}

// checkKeyOwnership requires a storage key whose embedded property matches
// the claimed owner.
func checkKeyOwnership(s3Key, propertyID string) error {
	if s3Key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "storage key is required")
	}
	owner, err := PropertyIDFromKey(s3Key)
	if err != nil {
		return err
	}
	if owner != propertyID {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("key %s belongs to property %s, not %s", s3Key, owner, propertyID))
	}
	return nil
}

func confirmOutcome(res *ConfirmResult, err error) string {
	switch {
	case err != nil:
		return string(pkgerrors.CodeOf(err))
	case res != nil && res.Idempotent:
		return "idempotent"
	default:
		return "confirmed"
	}
}

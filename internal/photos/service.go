// Package photos implements the upload pipeline: presigned slot issuance,
// upload confirmation, batch confirmation, and photo deletion.
package photos

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/metrics"
	"github.com/blaskocode/RapidUpload/pkg/models"
	"github.com/blaskocode/RapidUpload/pkg/storage/s3"
)

// photoStore is the slice of the photo repository the service needs.
type photoStore interface {
	Get(ctx context.Context, photoID string) (*models.Photo, error)
	Put(ctx context.Context, photo models.Photo) error
	BatchPut(ctx context.Context, batch []models.Photo) error
	BatchGet(ctx context.Context, photoIDs []string) ([]models.Photo, error)
	Delete(ctx context.Context, photoID string) error
	BatchDelete(ctx context.Context, photoIDs []string) error
	MarkUploaded(ctx context.Context, photoID, s3Key, uploadedAt string, fileSize *int64) error
	MarkUploadedWithCount(ctx context.Context, photoID, propertyID, s3Key, uploadedAt string, fileSize *int64) error
}

// propertyStore checks ownership and maintains the derived photo counter.
type propertyStore interface {
	Exists(ctx context.Context, propertyID string) (bool, error)
	AdjustPhotoCount(ctx context.Context, propertyID string, delta int) error
}

// objectStore is the slice of the S3 client the service needs.
type objectStore interface {
	Bucket() string
	PublicURL(key string) string
	PresignPut(ctx context.Context, key, contentType string, size int64, ttl time.Duration) (string, error)
	Head(ctx context.Context, key string) (*s3.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context, keys []string) error
}

// analysisStore removes analysis records that hang off deleted photos.
type analysisStore interface {
	DeleteByPhoto(ctx context.Context, photoID string) error
	DeleteByPhotos(ctx context.Context, photoIDs []string) error
}

// Options tunes the upload pipeline limits.
type Options struct {
	UploadURLTTL      time.Duration
	MaxSingleBytes    int64
	MaxBatchFileBytes int64
	MaxBatchSlots     int
	BatchWorkers      int
}

func (o Options) validate() error {
	if o.UploadURLTTL <= 0 {
		return fmt.Errorf("upload url ttl must be positive")
	}
	if o.MaxSingleBytes <= 0 || o.MaxBatchFileBytes <= 0 {
		return fmt.Errorf("size limits must be positive")
	}
	if o.MaxBatchSlots <= 0 {
		return fmt.Errorf("max batch slots must be positive")
	}
	if o.BatchWorkers <= 0 {
		return fmt.Errorf("batch workers must be positive")
	}
	return nil
}

type Service struct {
	photos     photoStore
	properties propertyStore
	store      objectStore
	analyses   analysisStore
	metrics    *metrics.UploadMetrics
	log        *logger.Logger
	opts       Options

	now   func() time.Time
	newID func() string
}

func NewService(photos photoStore, properties propertyStore, store objectStore, analyses analysisStore, m *metrics.UploadMetrics, log *logger.Logger, opts Options) (*Service, error) {
	if photos == nil || properties == nil || store == nil || analyses == nil || log == nil {
		return nil, fmt.Errorf("photos service: nil dependency")
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("photos service: %w", err)
	}
	return &Service{
		photos:     photos,
		properties: properties,
		store:      store,
		analyses:   analyses,
		metrics:    m,
		log:        log,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// SlotRequest asks for one presigned upload slot.
type SlotRequest struct {
	PropertyID  string
	Filename    string
	ContentType string
	FileSize    int64
}

// Slot is an issued upload credential plus the identity of the pending row
// behind it.
type Slot struct {
	PhotoID   string `json:"photoId"`
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
	ExpiresIn int64  `json:"expiresIn"`
}

// IssueSlot validates the request, presigns a PUT URL, and persists the
// pending photo row. The row carries the same key the credential is scoped
// to, so confirmation can later derive the public URL without re-asking.
func (s *Service) IssueSlot(ctx context.Context, req SlotRequest) (*Slot, error) {
	if err := s.checkSize(req.FileSize, s.opts.MaxSingleBytes); err != nil {
		return nil, err
	}
	if err := s.checkProperty(ctx, req.PropertyID); err != nil {
		return nil, err
	}
	slot, row, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.photos.Put(ctx, *row); err != nil {
		// The presigned URL is now an orphan; the pending cleanup sweep
		// owns reclaiming any object uploaded against it.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting photo metadata")
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"photo_id":    slot.PhotoID,
		"property_id": req.PropertyID,
		"s3_key":      slot.S3Key,
	}), "upload slot issued")
	return slot, nil
}

// IssueSlotBatch issues slots for up to MaxBatchSlots files in one call.
// Every entry is validated before any credential is minted.
func (s *Service) IssueSlotBatch(ctx context.Context, propertyID string, reqs []SlotRequest) ([]Slot, error) {
	if len(reqs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files in batch request")
	}
	if len(reqs) > s.opts.MaxBatchSlots {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("batch of %d exceeds the %d slot limit", len(reqs), s.opts.MaxBatchSlots))
	}
	for i := range reqs {
		if err := s.checkSize(reqs[i].FileSize, s.opts.MaxBatchFileBytes); err != nil {
			return nil, err
		}
	}
	if err := s.checkProperty(ctx, propertyID); err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(reqs))
	rows := make([]models.Photo, 0, len(reqs))
	for i := range reqs {
		reqs[i].PropertyID = propertyID
		slot, row, err := s.buildSlot(ctx, reqs[i])
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
		rows = append(rows, *row)
	}
	if err := s.photos.BatchPut(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting photo metadata batch")
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"property_id": propertyID,
		"count":       len(slots),
	}), "upload slot batch issued")
	return slots, nil
}

func (s *Service) buildSlot(ctx context.Context, req SlotRequest) (*Slot, *models.Photo, error) {
	sanitized := SanitizeFilename(req.Filename)
	photoID := s.newID()
	key := BuildStorageKey(req.PropertyID, photoID, sanitized)

	url, err := s.store.PresignPut(ctx, key, req.ContentType, req.FileSize, s.opts.UploadURLTTL)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generating upload url")
	}
	size := req.FileSize
	row := models.Photo{
		PhotoID:     photoID,
		PropertyID:  req.PropertyID,
		Filename:    sanitized,
		S3Key:       key,
		S3Bucket:    s.store.Bucket(),
		FileSize:    &size,
		Status:      models.PhotoStatusPending,
		ContentType: req.ContentType,
	}
	return &Slot{
		PhotoID:   photoID,
		UploadURL: url,
		S3Key:     key,
		ExpiresIn: int64(s.opts.UploadURLTTL.Seconds()),
	}, &row, nil
}

func (s *Service) checkSize(size, limit int64) error {
	if size <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
	}
	if size > limit {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file size %d exceeds the %d byte limit", size, limit))
	}
	return nil
}

func (s *Service) checkProperty(ctx context.Context, propertyID string) error {
	exists, err := s.properties.Exists(ctx, propertyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking property")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("property %s not found", propertyID))
	}
	return nil
}

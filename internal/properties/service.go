// Package properties manages property rows, their photo listings, and the
// derived photo counters.
package properties

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/models"
	"github.com/blaskocode/RapidUpload/pkg/pagination"
	"github.com/blaskocode/RapidUpload/pkg/storage/s3"
)

// recomputePageSize is how many photo rows each recomputation page pulls.
const recomputePageSize = 100

type propertyRepo interface {
	Get(ctx context.Context, propertyID string) (*models.Property, error)
	Exists(ctx context.Context, propertyID string) (bool, error)
	Put(ctx context.Context, property models.Property) error
	Delete(ctx context.Context, propertyID string) error
	ScanAll(ctx context.Context) ([]models.Property, error)
	SetPhotoCount(ctx context.Context, propertyID string, count int) error
}

type photoRepo interface {
	Put(ctx context.Context, photo models.Photo) error
	BatchDelete(ctx context.Context, photoIDs []string) error
	ListByProperty(ctx context.Context, propertyID string, limit int32, startPhotoID string) ([]models.Photo, string, error)
	ListAllByProperty(ctx context.Context, propertyID string) ([]models.Photo, error)
}

type objectStore interface {
	PublicURL(key string) string
	Head(ctx context.Context, key string) (*s3.ObjectInfo, error)
	DeleteAll(ctx context.Context, keys []string) error
}

type analysisStore interface {
	DeleteByProperty(ctx context.Context, propertyID string) error
}

type Service struct {
	properties propertyRepo
	photos     photoRepo
	store      objectStore
	analyses   analysisStore
	log        *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(properties propertyRepo, photos photoRepo, store objectStore, analyses analysisStore, log *logger.Logger) (*Service, error) {
	if properties == nil || photos == nil || store == nil || analyses == nil || log == nil {
		return nil, fmt.Errorf("properties service: nil dependency")
	}
	return &Service{
		properties: properties,
		photos:     photos,
		store:      store,
		analyses:   analyses,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Create registers a new property with a zero photo count.
func (s *Service) Create(ctx context.Context, name string) (*models.Property, error) {
	property := models.Property{
		PropertyID: s.newID(),
		Name:       name,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
		PhotoCount: 0,
	}
	if err := s.properties.Put(ctx, property); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting property")
	}
	s.log.Info(s.log.WithPropertyID(ctx, property.PropertyID), "property created")
	return &property, nil
}

func (s *Service) Get(ctx context.Context, propertyID string) (*models.Property, error) {
	property, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading property")
	}
	if property == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("property %s not found", propertyID))
	}
	return property, nil
}

// PropertyPage is one page of a property listing.
type PropertyPage struct {
	Items     []models.Property `json:"items"`
	NextToken string            `json:"nextToken,omitempty"`
}

// List returns properties newest first. The token resumes a previous page.
func (s *Service) List(ctx context.Context, limit int, token string) (*PropertyPage, error) {
	limit = pagination.NormalizeLimit(limit)
	_, lastID, err := pagination.ParseToken(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid continuation token")
	}

	all, err := s.properties.ScanAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing properties")
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt > all[j].CreatedAt
		}
		return all[i].PropertyID < all[j].PropertyID
	})

	start := 0
	if lastID != "" {
		for i := range all {
			if all[i].PropertyID == lastID {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(all))
	page := &PropertyPage{Items: all[start:end]}
	if page.Items == nil {
		page.Items = []models.Property{}
	}
	if end < len(all) {
		page.NextToken = pagination.EncodeToken("PropertyID", all[end-1].PropertyID)
	}
	return page, nil
}

// Delete removes a property and everything under it: stored objects first,
// then photo rows, analysis rows, and finally the property itself.
func (s *Service) Delete(ctx context.Context, propertyID string) error {
	if _, err := s.Get(ctx, propertyID); err != nil {
		return err
	}
	photos, err := s.photos.ListAllByProperty(ctx, propertyID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing property photos")
	}
	if len(photos) > 0 {
		keys := make([]string, 0, len(photos))
		ids := make([]string, 0, len(photos))
		for _, p := range photos {
			keys = append(keys, p.S3Key)
			ids = append(ids, p.PhotoID)
		}
		if err := s.store.DeleteAll(ctx, keys); err != nil {
			s.log.Warn(s.log.WithFields(ctx, map[string]any{
				"property_id": propertyID,
				"error":       err.Error(),
			}), "bulk object delete failed, continuing")
		}
		if err := s.photos.BatchDelete(ctx, ids); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting photo rows")
		}
	}
	if err := s.analyses.DeleteByProperty(ctx, propertyID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting analysis rows")
	}
	if err := s.properties.Delete(ctx, propertyID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting property")
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"property_id": propertyID,
		"photos":      len(photos),
	}), "property deleted")
	return nil
}

// PhotoView is a photo row enriched with its public URL.
type PhotoView struct {
	models.Photo
	URL string `json:"url"`
}

// PhotoPage is one page of a property's photo listing.
type PhotoPage struct {
	Items     []PhotoView `json:"items"`
	NextToken string      `json:"nextToken,omitempty"`
}

// ListPhotos returns one page of a property's photos. Rows written before
// metadata tracking existed are backfilled from object storage as they are
// read.
func (s *Service) ListPhotos(ctx context.Context, propertyID string, limit int, token string) (*PhotoPage, error) {
	if _, err := s.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	limit = pagination.NormalizeLimit(limit)
	_, lastID, err := pagination.ParseToken(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid continuation token")
	}

	rows, last, err := s.photos.ListByProperty(ctx, propertyID, int32(limit), lastID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing photos")
	}
	page := &PhotoPage{Items: make([]PhotoView, 0, len(rows))}
	for i := range rows {
		row := s.backfillMetadata(ctx, rows[i])
		page.Items = append(page.Items, PhotoView{Photo: row, URL: s.store.PublicURL(row.S3Key)})
	}
	if last != "" {
		page.NextToken = pagination.EncodeToken("PhotoID", last)
	}
	return page, nil
}

// backfillMetadata fills size, content type, and status for legacy rows
// from the stored object's headers, persisting what it learned. Lookup
// failures leave the row as-is.
func (s *Service) backfillMetadata(ctx context.Context, photo models.Photo) models.Photo {
	if photo.FileSize != nil && photo.ContentType != "" && photo.Status != "" {
		return photo
	}
	info, err := s.store.Head(ctx, photo.S3Key)
	if err != nil || info == nil {
		return photo
	}
	changed := false
	if photo.FileSize == nil && info.ContentLength > 0 {
		size := info.ContentLength
		photo.FileSize = &size
		changed = true
	}
	if photo.ContentType == "" && info.ContentType != "" {
		photo.ContentType = info.ContentType
		changed = true
	}
	if photo.Status == "" {
		// The object exists, so the legacy row represents a finished upload.
		photo.Status = models.PhotoStatusUploaded
		changed = true
	}
	if changed {
		if err := s.photos.Put(ctx, photo); err != nil {
			s.log.Warn(s.log.WithFields(ctx, map[string]any{
				"photo_id": photo.PhotoID,
				"error":    err.Error(),
			}), "metadata backfill write failed")
		}
	}
	return photo
}

// RecomputeCount recounts a property's confirmed photos from the source of
// truth and writes the absolute value. Safe to run at any time, including
// concurrently with confirmations.
func (s *Service) RecomputeCount(ctx context.Context, propertyID string) (int, error) {
	if _, err := s.Get(ctx, propertyID); err != nil {
		return 0, err
	}
	count := 0
	start := ""
	for {
		rows, last, err := s.photos.ListByProperty(ctx, propertyID, recomputePageSize, start)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting photos")
		}
		for i := range rows {
			if rows[i].CountsAsUploaded() {
				count++
			}
		}
		if last == "" {
			break
		}
		start = last
	}
	if err := s.properties.SetPhotoCount(ctx, propertyID, count); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing photo count")
	}
	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"property_id": propertyID,
		"photo_count": count,
	}), "photo count recomputed")
	return count, nil
}

// RecomputeSummary reports a full recount across every property.
type RecomputeSummary struct {
	Properties int `json:"properties"`
	Updated    int `json:"updated"`
	Failed     int `json:"failed"`
}

// RecomputeAllCounts recounts every property, logging and skipping
// per-property failures.
func (s *Service) RecomputeAllCounts(ctx context.Context) (*RecomputeSummary, error) {
	all, err := s.properties.ScanAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing properties")
	}
	summary := &RecomputeSummary{Properties: len(all)}
	for i := range all {
		if _, err := s.RecomputeCount(ctx, all[i].PropertyID); err != nil {
			summary.Failed++
			s.log.Warn(s.log.WithFields(ctx, map[string]any{
				"property_id": all[i].PropertyID,
				"error":       err.Error(),
			}), "photo count recompute failed, continuing")
			continue
		}
		summary.Updated++
	}
	return summary, nil
}

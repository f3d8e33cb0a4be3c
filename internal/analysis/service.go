// Package analysis creates photo analysis jobs and reads back their
// results. The heavy lifting happens in an external function invoked
// asynchronously; this service owns only the job records.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/models"
	"github.com/blaskocode/RapidUpload/pkg/pagination"
)

type analysisRepo interface {
	Get(ctx context.Context, analysisID string) (*models.AnalysisResult, error)
	GetByPhoto(ctx context.Context, photoID string) (*models.AnalysisResult, error)
	ListByProperty(ctx context.Context, propertyID string, limit int32, startAnalysisID string) ([]models.AnalysisResult, string, error)
	Put(ctx context.Context, result models.AnalysisResult) error
}

type photoGetter interface {
	Get(ctx context.Context, photoID string) (*models.Photo, error)
}

type invoker interface {
	InvokeAsync(ctx context.Context, payload any) error
}

// JobPayload is what the analysis function receives.
type JobPayload struct {
	AnalysisID string `json:"analysisId"`
	PhotoID    string `json:"photoId"`
	PropertyID string `json:"propertyId"`
	S3Bucket   string `json:"s3Bucket"`
	S3Key      string `json:"s3Key"`
}

type Service struct {
	analyses analysisRepo
	photos   photoGetter
	fn       invoker
	log      *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewService(analyses analysisRepo, photos photoGetter, fn invoker, log *logger.Logger) (*Service, error) {
	if analyses == nil || photos == nil || fn == nil || log == nil {
		return nil, fmt.Errorf("analysis service: nil dependency")
	}
	return &Service{
		analyses: analyses,
		photos:   photos,
		fn:       fn,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// Trigger starts an analysis job for a confirmed photo. A photo with a
// live (non-failed) job keeps it; only failed jobs are re-run.
func (s *Service) Trigger(ctx context.Context, photoID string) (*models.AnalysisResult, error) {
	record, _, err := s.trigger(ctx, photoID)
	return record, err
}

func (s *Service) trigger(ctx context.Context, photoID string) (*models.AnalysisResult, bool, error) {
	photo, err := s.photos.Get(ctx, photoID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading photo metadata")
	}
	if photo == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("photo %s not found", photoID))
	}
	if !photo.CountsAsUploaded() {
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("photo %s is not uploaded yet", photoID))
	}

	existing, err := s.analyses.GetByPhoto(ctx, photoID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking existing analysis")
	}
	if existing != nil && existing.Status != models.AnalysisStatusFailed {
		return existing, false, nil
	}

	record := models.AnalysisResult{
		AnalysisID: s.newID(),
		PhotoID:    photo.PhotoID,
		PropertyID: photo.PropertyID,
		Status:     models.AnalysisStatusProcessing,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.analyses.Put(ctx, record); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting analysis record")
	}

	err = s.fn.InvokeAsync(ctx, JobPayload{
		AnalysisID: record.AnalysisID,
		PhotoID:    photo.PhotoID,
		PropertyID: photo.PropertyID,
		S3Bucket:   photo.S3Bucket,
		S3Key:      photo.S3Key,
	})
	if err != nil {
		record.Status = models.AnalysisStatusFailed
		record.ErrorMessage = err.Error()
		if putErr := s.analyses.Put(ctx, record); putErr != nil {
			s.log.Error(ctx, "marking analysis failed", putErr)
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoking analysis function")
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"analysis_id": record.AnalysisID,
		"photo_id":    photo.PhotoID,
		"property_id": photo.PropertyID,
	}), "analysis job started")
	return &record, true, nil
}

// TriggerSummary reports a batched trigger request.
type TriggerSummary struct {
	Requested int                     `json:"requested"`
	Started   int                     `json:"started"`
	Skipped   int                     `json:"skipped"`
	Failed    int                     `json:"failed"`
	Results   []models.AnalysisResult `json:"results"`
}

// TriggerBatch starts jobs for many photos, isolating per-photo failures.
func (s *Service) TriggerBatch(ctx context.Context, photoIDs []string) (*TriggerSummary, error) {
	if len(photoIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no photo ids in batch request")
	}
	summary := &TriggerSummary{Requested: len(photoIDs)}
	for _, photoID := range photoIDs {
		record, started, err := s.trigger(ctx, photoID)
		if err != nil {
			summary.Failed++
			s.log.Warn(s.log.WithFields(ctx, map[string]any{
				"photo_id": photoID,
				"error":    err.Error(),
			}), "analysis trigger failed, continuing")
			continue
		}
		if started {
			summary.Started++
		} else {
			summary.Skipped++
		}
		summary.Results = append(summary.Results, *record)
	}
	return summary, nil
}

func (s *Service) Get(ctx context.Context, analysisID string) (*models.AnalysisResult, error) {
	result, err := s.analyses.Get(ctx, analysisID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading analysis")
	}
	if result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("analysis %s not found", analysisID))
	}
	return result, nil
}

func (s *Service) GetByPhoto(ctx context.Context, photoID string) (*models.AnalysisResult, error) {
	result, err := s.analyses.GetByPhoto(ctx, photoID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading analysis")
	}
	if result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no analysis for photo %s", photoID))
	}
	return result, nil
}

// AnalysisPage is one page of a property's analysis listing.
type AnalysisPage struct {
	Items     []models.AnalysisResult `json:"items"`
	NextToken string                  `json:"nextToken,omitempty"`
}

func (s *Service) ListByProperty(ctx context.Context, propertyID string, limit int, token string) (*AnalysisPage, error) {
	limit = pagination.NormalizeLimit(limit)
	_, lastID, err := pagination.ParseToken(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid continuation token")
	}
	items, last, err := s.analyses.ListByProperty(ctx, propertyID, int32(limit), lastID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing analyses")
	}
	page := &AnalysisPage{Items: items}
	if page.Items == nil {
		page.Items = []models.AnalysisResult{}
	}
	if last != "" {
		page.NextToken = pagination.EncodeToken("AnalysisID", last)
	}
	return page, nil
}

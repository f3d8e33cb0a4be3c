// Package cleanup implements the administrative wipe: every stored object
// and every row in every table. It exists for dev and test environments
// and is wired behind a dedicated admin route.
package cleanup

import (
	"context"
	"fmt"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

type objectStore interface {
	ListAllKeys(ctx context.Context, prefix string) ([]string, error)
	DeleteAll(ctx context.Context, keys []string) error
}

type photoRepo interface {
	ScanAll(ctx context.Context) ([]models.Photo, error)
	BatchDelete(ctx context.Context, photoIDs []string) error
}

type propertyRepo interface {
	ScanAll(ctx context.Context) ([]models.Property, error)
	BatchDelete(ctx context.Context, propertyIDs []string) error
}

type analysisRepo interface {
	ScanAll(ctx context.Context) ([]models.AnalysisResult, error)
	BatchDelete(ctx context.Context, analysisIDs []string) error
}

type Service struct {
	store      objectStore
	photos     photoRepo
	properties propertyRepo
	analyses   analysisRepo
	log        *logger.Logger
}

func NewService(store objectStore, photos photoRepo, properties propertyRepo, analyses analysisRepo, log *logger.Logger) (*Service, error) {
	if store == nil || photos == nil || properties == nil || analyses == nil || log == nil {
		return nil, fmt.Errorf("cleanup service: nil dependency")
	}
	return &Service{
		store:      store,
		photos:     photos,
		properties: properties,
		analyses:   analyses,
		log:        log,
	}, nil
}

// Report counts what a wipe removed per category.
type Report struct {
	Objects    int `json:"objects"`
	Photos     int `json:"photos"`
	Analyses   int `json:"analyses"`
	Properties int `json:"properties"`
}

// ClearAll wipes object storage and all three tables. Object deletion
// failures are logged and skipped so a stuck bucket cannot block clearing
// the tables.
func (s *Service) ClearAll(ctx context.Context) (*Report, error) {
	report := &Report{}

	keys, err := s.store.ListAllKeys(ctx, "")
	if err != nil {
		s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "listing objects failed, skipping object wipe")
	} else if len(keys) > 0 {
		if err := s.store.DeleteAll(ctx, keys); err != nil {
			s.log.Warn(s.log.WithField(ctx, "error", err.Error()), "object wipe failed, continuing")
		} else {
			report.Objects = len(keys)
		}
	}

	photos, err := s.photos.ScanAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing photos")
	}
	if len(photos) > 0 {
		ids := make([]string, 0, len(photos))
		for i := range photos {
			ids = append(ids, photos[i].PhotoID)
		}
		if err := s.photos.BatchDelete(ctx, ids); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting photo rows")
		}
		report.Photos = len(ids)
	}

	analyses, err := s.analyses.ScanAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing analyses")
	}
	if len(analyses) > 0 {
		ids := make([]string, 0, len(analyses))
		for i := range analyses {
			ids = append(ids, analyses[i].AnalysisID)
		}
		if err := s.analyses.BatchDelete(ctx, ids); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting analysis rows")
		}
		report.Analyses = len(ids)
	}

	properties, err := s.properties.ScanAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing properties")
	}
	if len(properties) > 0 {
		ids := make([]string, 0, len(properties))
		for i := range properties {
			ids = append(ids, properties[i].PropertyID)
		}
		if err := s.properties.BatchDelete(ctx, ids); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting property rows")
		}
		report.Properties = len(ids)
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"objects":    report.Objects,
		"photos":     report.Photos,
		"analyses":   report.Analyses,
		"properties": report.Properties,
	}), "cleanup finished")
	return report, nil
}

package cleanup

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

type stubObjectStore struct {
	keys       []string
	listErr    error
	deleteErr  error
	deletedAll [][]string
}

func (s *stubObjectStore) ListAllKeys(ctx context.Context, prefix string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.keys, nil
}

func (s *stubObjectStore) DeleteAll(ctx context.Context, keys []string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedAll = append(s.deletedAll, keys)
	return nil
}

type stubPhotoRepo struct {
	rows    []models.Photo
	deleted [][]string
}

func (s *stubPhotoRepo) ScanAll(ctx context.Context) ([]models.Photo, error) {
	return s.rows, nil
}

func (s *stubPhotoRepo) BatchDelete(ctx context.Context, photoIDs []string) error {
	s.deleted = append(s.deleted, photoIDs)
	return nil
}

type stubPropertyRepo struct {
	rows    []models.Property
	deleted [][]string
}

func (s *stubPropertyRepo) ScanAll(ctx context.Context) ([]models.Property, error) {
	return s.rows, nil
}

func (s *stubPropertyRepo) BatchDelete(ctx context.Context, propertyIDs []string) error {
	s.deleted = append(s.deleted, propertyIDs)
	return nil
}

type stubAnalysisRepo struct {
	rows    []models.AnalysisResult
	deleted [][]string
}

func (s *stubAnalysisRepo) ScanAll(ctx context.Context) ([]models.AnalysisResult, error) {
	return s.rows, nil
}

func (s *stubAnalysisRepo) BatchDelete(ctx context.Context, analysisIDs []string) error {
	s.deleted = append(s.deleted, analysisIDs)
	return nil
}

func newTestService(t *testing.T, store *stubObjectStore, photos *stubPhotoRepo, properties *stubPropertyRepo, analyses *stubAnalysisRepo) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(store, photos, properties, analyses, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestClearAll(t *testing.T) {
	t.Parallel()

	store := &stubObjectStore{keys: []string{"k1", "k2", "k3"}}
	photos := &stubPhotoRepo{rows: []models.Photo{{PhotoID: "p1"}, {PhotoID: "p2"}}}
	properties := &stubPropertyRepo{rows: []models.Property{{PropertyID: "prop-1"}}}
	analyses := &stubAnalysisRepo{rows: []models.AnalysisResult{{AnalysisID: "an-1"}}}
	svc := newTestService(t, store, photos, properties, analyses)

	report, err := svc.ClearAll(context.Background())
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if report.Objects != 3 || report.Photos != 2 || report.Analyses != 1 || report.Properties != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(store.deletedAll) != 1 || len(photos.deleted) != 1 || len(analyses.deleted) != 1 || len(properties.deleted) != 1 {
		t.Fatal("every category must be wiped")
	}
}

func TestClearAllEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubObjectStore{}, &stubPhotoRepo{}, &stubPropertyRepo{}, &stubAnalysisRepo{})

	report, err := svc.ClearAll(context.Background())
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if *report != (Report{}) {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestClearAllContinuesPastObjectFailures(t *testing.T) {
	t.Parallel()

	store := &stubObjectStore{keys: []string{"k1"}, deleteErr: errors.New("s3 down")}
	photos := &stubPhotoRepo{rows: []models.Photo{{PhotoID: "p1"}}}
	svc := newTestService(t, store, photos, &stubPropertyRepo{}, &stubAnalysisRepo{})

	report, err := svc.ClearAll(context.Background())
	if err != nil {
		t.Fatalf("object failure must not abort the wipe: %v", err)
	}
	if report.Objects != 0 {
		t.Fatalf("failed object wipe must not be counted, got %d", report.Objects)
	}
	if report.Photos != 1 {
		t.Fatal("tables must still be cleared")
	}
}

package properties

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/models"
	"github.com/blaskocode/RapidUpload/pkg/storage/s3"
)

type stubPropertyRepo struct {
	rows map[string]models.Property

	put       []models.Property
	putErr    error
	deleted   []string
	setCounts map[string]int
	setErr    error
}

func (s *stubPropertyRepo) Get(ctx context.Context, propertyID string) (*models.Property, error) {
	if row, ok := s.rows[propertyID]; ok {
		copied := row
		return &copied, nil
	}
	return nil, nil
}

func (s *stubPropertyRepo) Exists(ctx context.Context, propertyID string) (bool, error) {
	_, ok := s.rows[propertyID]
	return ok, nil
}

func (s *stubPropertyRepo) Put(ctx context.Context, property models.Property) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.put = append(s.put, property)
	return nil
}

func (s *stubPropertyRepo) Delete(ctx context.Context, propertyID string) error {
	s.deleted = append(s.deleted, propertyID)
	return nil
}

func (s *stubPropertyRepo) ScanAll(ctx context.Context) ([]models.Property, error) {
	out := make([]models.Property, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

func (s *stubPropertyRepo) SetPhotoCount(ctx context.Context, propertyID string, count int) error {
	if s.setErr != nil {
		return s.setErr
	}
	if s.setCounts == nil {
		s.setCounts = map[string]int{}
	}
	s.setCounts[propertyID] = count
	return nil
}

type stubPhotoRepo struct {
	byProperty map[string][]models.Photo

	put          []models.Photo
	batchDeleted [][]string
}

func (s *stubPhotoRepo) Put(ctx context.Context, photo models.Photo) error {
	s.put = append(s.put, photo)
	return nil
}

func (s *stubPhotoRepo) BatchDelete(ctx context.Context, photoIDs []string) error {
	s.batchDeleted = append(s.batchDeleted, photoIDs)
	return nil
}

func (s *stubPhotoRepo) ListByProperty(ctx context.Context, propertyID string, limit int32, startPhotoID string) ([]models.Photo, string, error) {
	rows := s.byProperty[propertyID]
	start := 0
	if startPhotoID != "" {
		for i := range rows {
			if rows[i].PhotoID == startPhotoID {
				start = i + 1
				break
			}
		}
	}
	end := start + int(limit)
	if end > len(rows) {
		end = len(rows)
	}
	page := rows[start:end]
	last := ""
	if end < len(rows) && len(page) > 0 {
		last = page[len(page)-1].PhotoID
	}
	return page, last, nil
}

func (s *stubPhotoRepo) ListAllByProperty(ctx context.Context, propertyID string) ([]models.Photo, error) {
	return s.byProperty[propertyID], nil
}

type stubObjectStore struct {
	head       map[string]*s3.ObjectInfo
	deletedAll [][]string
}

func (s *stubObjectStore) PublicURL(key string) string {
	return "https://test-bucket.s3.us-east-1.amazonaws.com/" + key
}

func (s *stubObjectStore) Head(ctx context.Context, key string) (*s3.ObjectInfo, error) {
	return s.head[key], nil
}

func (s *stubObjectStore) DeleteAll(ctx context.Context, keys []string) error {
	s.deletedAll = append(s.deletedAll, keys)
	return nil
}

type stubAnalysisStore struct {
	deletedByProperty []string
}

func (s *stubAnalysisStore) DeleteByProperty(ctx context.Context, propertyID string) error {
	s.deletedByProperty = append(s.deletedByProperty, propertyID)
	return nil
}

func newTestService(t *testing.T, props *stubPropertyRepo, photos *stubPhotoRepo, store *stubObjectStore, analyses *stubAnalysisStore) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(props, photos, store, analyses, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	next := 0
	svc.newID = func() string {
		next++
		return fmt.Sprintf("prop-%04d", next)
	}
	return svc
}

func photoRow(photoID, propertyID, status string) models.Photo {
	return models.Photo{
		PhotoID:    photoID,
		PropertyID: propertyID,
		Filename:   photoID + ".jpg",
		S3Key:      "properties/" + propertyID + "/" + photoID + "-" + photoID + ".jpg",
		S3Bucket:   "test-bucket",
		Status:     status,
	}
}

func TestCreateProperty(t *testing.T) {
	t.Parallel()

	props := &stubPropertyRepo{rows: map[string]models.Property{}}
	svc := newTestService(t, props, &stubPhotoRepo{}, &stubObjectStore{}, &stubAnalysisStore{})

	property, err := svc.Create(context.Background(), "Lakeside Cottage")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if property.PropertyID != "prop-0001" || property.Name != "Lakeside Cottage" {
		t.Fatalf("unexpected property %+v", property)
	}
	if property.PhotoCount != 0 {
		t.Fatalf("new property must start at zero photos, got %d", property.PhotoCount)
	}
	if property.CreatedAt != "2025-06-01T12:00:00Z" {
		t.Fatalf("unexpected createdAt %s", property.CreatedAt)
	}
	if len(props.put) != 1 {
		t.Fatal("property row not persisted")
	}
}

func TestListPropertiesNewestFirstWithPaging(t *testing.T) {
	t.Parallel()

	props := &stubPropertyRepo{rows: map[string]models.Property{}}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("prop-%d", i)
		props.rows[id] = models.Property{
			PropertyID: id,
			Name:       id,
			CreatedAt:  fmt.Sprintf("2025-06-0%dT00:00:00Z", i),
		}
	}
	svc := newTestService(t, props, &stubPhotoRepo{}, &stubObjectStore{}, &stubAnalysisStore{})

	page1, err := svc.List(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page1.Items) != 2 || page1.Items[0].PropertyID != "prop-5" || page1.Items[1].PropertyID != "prop-4" {
		t.Fatalf("unexpected first page %+v", page1.Items)
	}
	if page1.NextToken == "" {
		t.Fatal("expected a continuation token")
	}

	page2, err := svc.List(context.Background(), 2, page1.NextToken)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page2.Items) != 2 || page2.Items[0].PropertyID != "prop-3" {
		t.Fatalf("unexpected second page %+v", page2.Items)
	}

	page3, err := svc.List(context.Background(), 2, page2.NextToken)
	if err != nil {
		t.Fatalf("List page 3: %v", err)
	}
	if len(page3.Items) != 1 || page3.Items[0].PropertyID != "prop-1" {
		t.Fatalf("unexpected last page %+v", page3.Items)
	}
	if page3.NextToken != "" {
		t.Fatal("last page must not carry a token")
	}
}

func TestListPropertiesBadToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubPropertyRepo{rows: map[string]models.Property{}}, &stubPhotoRepo{}, &stubObjectStore{}, &stubAnalysisStore{})
	_, err := svc.List(context.Background(), 10, "not-base64!!!")
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestDeletePropertyCascades(t *testing.T) {
	t.Parallel()

	props := &stubPropertyRepo{rows: map[string]models.Property{
		"prop-1": {PropertyID: "prop-1", Name: "one"},
	}}
	photos := &stubPhotoRepo{byProperty: map[string][]models.Photo{
		"prop-1": {
			photoRow("p1", "prop-1", models.PhotoStatusUploaded),
			photoRow("p2", "prop-1", models.PhotoStatusPending),
		},
	}}
	store := &stubObjectStore{}
	analyses := &stubAnalysisStore{}
	svc := newTestService(t, props, photos, store, analyses)

	if err := svc.Delete(context.Background(), "prop-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.deletedAll) != 1 || len(store.deletedAll[0]) != 2 {
		t.Fatalf("objects not deleted: %+v", store.deletedAll)
	}
	if len(photos.batchDeleted) != 1 || len(photos.batchDeleted[0]) != 2 {
		t.Fatalf("photo rows not deleted: %+v", photos.batchDeleted)
	}
	if len(analyses.deletedByProperty) != 1 || analyses.deletedByProperty[0] != "prop-1" {
		t.Fatalf("analyses not deleted: %+v", analyses.deletedByProperty)
	}
	if len(props.deleted) != 1 || props.deleted[0] != "prop-1" {
		t.Fatalf("property row not deleted: %+v", props.deleted)
	}
}

func TestDeletePropertyNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubPropertyRepo{rows: map[string]models.Property{}}, &stubPhotoRepo{}, &stubObjectStore{}, &stubAnalysisStore{})
	expectCode(t, svc.Delete(context.Background(), "nope"), pkgerrors.CodeNotFound)
}

func TestRecomputeCount(t *testing.T) {
	t.Parallel()

	props := &stubPropertyRepo{rows: map[string]models.Property{
		"prop-1": {PropertyID: "prop-1", Name: "one", PhotoCount: 3},
	}}
	var rows []models.Photo
	for i := 0; i < 10; i++ {
		rows = append(rows, photoRow(fmt.Sprintf("u%d", i), "prop-1", models.PhotoStatusUploaded))
	}
	rows = append(rows,
		photoRow("legacy", "prop-1", ""),
		photoRow("pend1", "prop-1", models.PhotoStatusPending),
		photoRow("pend2", "prop-1", models.PhotoStatusPending),
		photoRow("fail1", "prop-1", models.PhotoStatusFailed),
	)
	photos := &stubPhotoRepo{byProperty: map[string][]models.Photo{"prop-1": rows}}
	svc := newTestService(t, props, photos, &stubObjectStore{}, &stubAnalysisStore{})

	count, err := svc.RecomputeCount(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("RecomputeCount: %v", err)
	}
	// 10 uploaded plus the legacy row with no status.
	if count != 11 {
		t.Fatalf("expected 11, got %d", count)
	}
	if props.setCounts["prop-1"] != 11 {
		t.Fatalf("count not persisted: %+v", props.setCounts)
	}

	again, err := svc.RecomputeCount(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("second RecomputeCount: %v", err)
	}
	if again != count {
		t.Fatalf("recompute not idempotent: %d then %d", count, again)
	}
}

func TestRecomputeAllCounts(t *testing.T) {
	t.Parallel()

	props := &stubPropertyRepo{rows: map[string]models.Property{
		"prop-1": {PropertyID: "prop-1"},
		"prop-2": {PropertyID: "prop-2"},
	}}
	photos := &stubPhotoRepo{byProperty: map[string][]models.Photo{
		"prop-1": {photoRow("p1", "prop-1", models.PhotoStatusUploaded)},
	}}
	svc := newTestService(t, props, photos, &stubObjectStore{}, &stubAnalysisStore{})

	summary, err := svc.RecomputeAllCounts(context.Background())
	if err != nil {
		t.Fatalf("RecomputeAllCounts: %v", err)
	}
	if summary.Properties != 2 || summary.Updated != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if props.setCounts["prop-1"] != 1 || props.setCounts["prop-2"] != 0 {
		t.Fatalf("unexpected counts %+v", props.setCounts)
	}
}

func TestListPhotosBackfillsLegacyRows(t *testing.T) {
	t.Parallel()

	legacy := photoRow("old1", "prop-1", "")
	legacy.ContentType = ""
	props := &stubPropertyRepo{rows: map[string]models.Property{
		"prop-1": {PropertyID: "prop-1"},
	}}
	photos := &stubPhotoRepo{byProperty: map[string][]models.Photo{
		"prop-1": {legacy},
	}}
	store := &stubObjectStore{head: map[string]*s3.ObjectInfo{
		legacy.S3Key: {Key: legacy.S3Key, ContentLength: 4096, ContentType: "image/jpeg"},
	}}
	svc := newTestService(t, props, photos, store, &stubAnalysisStore{})

	page, err := svc.ListPhotos(context.Background(), "prop-1", 10, "")
	if err != nil {
		t.Fatalf("ListPhotos: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	item := page.Items[0]
	if item.Status != models.PhotoStatusUploaded {
		t.Fatalf("legacy status not backfilled: %+v", item.Photo)
	}
	if item.FileSize == nil || *item.FileSize != 4096 || item.ContentType != "image/jpeg" {
		t.Fatalf("metadata not backfilled: %+v", item.Photo)
	}
	if item.URL == "" {
		t.Fatal("missing public url")
	}
	if len(photos.put) != 1 {
		t.Fatal("backfilled row must be persisted")
	}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := pkgerrors.CodeOf(err); got != code {
		t.Fatalf("expected code %s, got %s (%v)", code, got, err)
	}
}

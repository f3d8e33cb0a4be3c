package photos

import (
	"context"
	"testing"

	"github.com/blaskocode/RapidUpload/pkg/dynamo"
	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

func pendingPhoto(photoID, propertyID string) models.Photo {
	return models.Photo{
		PhotoID:    photoID,
		PropertyID: propertyID,
		Filename:   "a.jpg",
		S3Key:      keyFor(photoID, propertyID),
		S3Bucket:   "test-bucket",
		Status:     models.PhotoStatusPending,
	}
}

func keyFor(photoID, propertyID string) string {
	return "properties/" + propertyID + "/" + photoID + "-a.jpg"
}

func TestConfirmStrictSuccess(t *testing.T) {
	t.Parallel()

	photoRepo := &stubPhotos{rows: map[string]models.Photo{
		"p1": pendingPhoto("p1", "prop-1"),
	}}
	svc := newTestService(t, photoRepo, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	size := int64(2048)
	res, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "p1",
		PropertyID: "prop-1",
		S3Key:      keyFor("p1", "prop-1"),
		FileSize:   &size,
	}, ModeStrict)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Status != models.PhotoStatusUploaded || res.Idempotent {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.URL != "https://test-bucket.s3.us-east-1.amazonaws.com/properties/prop-1/p1-a.jpg" {
		t.Fatalf("unexpected url %s", res.URL)
	}
	if len(photoRepo.markedTx) != 1 {
		t.Fatalf("strict mode must use the transactional write, got %+v", photoRepo)
	}
	call := photoRepo.markedTx[0]
	if call.photoID != "p1" || call.propertyID != "prop-1" {
		t.Fatalf("unexpected transact call %+v", call)
	}
	if call.s3Key != keyFor("p1", "prop-1") {
		t.Fatalf("client key not recorded on the row: %s", call.s3Key)
	}
	if call.fileSize == nil || *call.fileSize != 2048 {
		t.Fatalf("file size not forwarded: %+v", call.fileSize)
	}
	if call.uploadedAt != "2025-06-01T12:00:00Z" {
		t.Fatalf("unexpected uploadedAt %s", call.uploadedAt)
	}
	if len(photoRepo.marked) != 0 {
		t.Fatal("strict mode must not use the status-only write")
	}
}

func TestConfirmRelaxedLeavesCounterAlone(t *testing.T) {
	t.Parallel()

	photoRepo := &stubPhotos{rows: map[string]models.Photo{
		"p1": pendingPhoto("p1", "prop-1"),
	}}
	props := &stubProperties{exists: true}
	svc := newTestService(t, photoRepo, props, &stubStore{}, &stubAnalyses{})

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "p1",
		PropertyID: "prop-1",
		S3Key:      keyFor("p1", "prop-1"),
	}, ModeRelaxed)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(photoRepo.marked) != 1 || len(photoRepo.markedTx) != 0 {
		t.Fatalf("relaxed mode must use the status-only write, got %+v", photoRepo)
	}
	if len(props.adjusted) != 0 {
		t.Fatal("relaxed mode must not touch the counter")
	}
}

func TestConfirmIdempotent(t *testing.T) {
	t.Parallel()

	row := pendingPhoto("p1", "prop-1")
	row.Status = models.PhotoStatusUploaded
	photoRepo := &stubPhotos{rows: map[string]models.Photo{"p1": row}}
	svc := newTestService(t, photoRepo, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	res, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "p1",
		PropertyID: "prop-1",
		S3Key:      keyFor("p1", "prop-1"),
	}, ModeStrict)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !res.Idempotent {
		t.Fatal("re-confirming an uploaded photo must be idempotent")
	}
	if len(photoRepo.marked) != 0 || len(photoRepo.markedTx) != 0 {
		t.Fatal("idempotent confirmation must not write")
	}
}

func TestConfirmNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubPhotos{}, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "nope",
		PropertyID: "prop-1",
		S3Key:      keyFor("nope", "prop-1"),
	}, ModeStrict)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestConfirmOwnershipMismatch(t *testing.T) {
	t.Parallel()

	photoRepo := &stubPhotos{rows: map[string]models.Photo{
		"p1": pendingPhoto("p1", "prop-1"),
	}}
	svc := newTestService(t, photoRepo, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	// The key names the claimed property, so the row ownership check is what
	// rejects this.
	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "p1",
		PropertyID: "prop-2",
		S3Key:      keyFor("p1", "prop-2"),
	}, ModeStrict)
	expectCode(t, err, pkgerrors.CodeValidation)
	if len(photoRepo.marked)+len(photoRepo.markedTx) != 0 {
		t.Fatal("mismatched ownership must not write")
	}
}

func TestConfirmRequiresStorageKey(t *testing.T) {
	t.Parallel()

	photoRepo := &stubPhotos{rows: map[string]models.Photo{
		"p1": pendingPhoto("p1", "prop-1"),
	}}
	svc := newTestService(t, photoRepo, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	_, err := svc.Confirm(context.Background(), ConfirmRequest{PhotoID: "p1", PropertyID: "prop-1"}, ModeStrict)
	expectCode(t, err, pkgerrors.CodeValidation)
	if len(photoRepo.marked)+len(photoRepo.markedTx) != 0 {
		t.Fatal("a missing storage key must not write")
	}
}

func TestConfirmRejectsForeignKey(t *testing.T) {
	t.Parallel()

	photoRepo := &stubPhotos{rows: map[string]models.Photo{
		"p1": pendingPhoto("p1", "prop-1"),
	}}
	svc := newTestService(t, photoRepo, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "p1",
		PropertyID: "prop-1",
		S3Key:      keyFor("p1", "prop-2"),
	}, ModeStrict)
	expectCode(t, err, pkgerrors.CodeValidation)
	if len(photoRepo.marked)+len(photoRepo.markedTx) != 0 {
		t.Fatal("a key owned by another property must not write")
	}
}

func TestConfirmWrongStateConflicts(t *testing.T) {
	t.Parallel()

	row := pendingPhoto("p1", "prop-1")
	row.Status = models.PhotoStatusFailed
	photoRepo := &stubPhotos{rows: map[string]models.Photo{"p1": row}}
	svc := newTestService(t, photoRepo, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "p1",
		PropertyID: "prop-1",
		S3Key:      keyFor("p1", "prop-1"),
	}, ModeStrict)
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestConfirmLostRaceConflicts(t *testing.T) {
	t.Parallel()

	photoRepo := &stubPhotos{
		rows:      map[string]models.Photo{"p1": pendingPhoto("p1", "prop-1")},
		markTxErr: dynamo.ErrConditionFailed,
	}
	svc := newTestService(t, photoRepo, &stubProperties{exists: true}, &stubStore{}, &stubAnalyses{})

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		PhotoID:    "p1",
		PropertyID: "prop-1",
		S3Key:      keyFor("p1", "prop-1"),
	}, ModeStrict)
	expectCode(t, err, pkgerrors.CodeConflict)
}

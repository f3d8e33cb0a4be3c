package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blaskocode/RapidUpload/api/responses"
	"github.com/blaskocode/RapidUpload/api/validators"
	"github.com/blaskocode/RapidUpload/internal/photos"
	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
)

type uploadURLRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
	FileSize    int64  `json:"fileSize" validate:"required,min=1"`
}

// PhotoUploadURL issues one presigned upload slot for a property.
func PhotoUploadURL(svc *photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}
		var payload uploadURLRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slot, err := svc.IssueSlot(r.Context(), photos.SlotRequest{
			PropertyID:  chi.URLParam(r, "propertyId"),
			Filename:    payload.Filename,
			ContentType: payload.ContentType,
			FileSize:    payload.FileSize,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, slot)
	}
}

type uploadURLBatchRequest struct {
	Files []uploadURLRequest `json:"files" validate:"required,min=1,dive"`
}

// PhotoUploadURLBatch issues presigned slots for many files at once.
func PhotoUploadURLBatch(svc *photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}
		var payload uploadURLBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reqs := make([]photos.SlotRequest, 0, len(payload.Files))
		for _, f := range payload.Files {
			reqs = append(reqs, photos.SlotRequest{
				Filename:    f.Filename,
				ContentType: f.ContentType,
				FileSize:    f.FileSize,
			})
		}
		slots, err := svc.IssueSlotBatch(r.Context(), chi.URLParam(r, "propertyId"), reqs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"slots": slots})
	}
}

type confirmRequest struct {
	S3Key    string `json:"s3Key" validate:"required"`
	FileSize *int64 `json:"fileSize,omitempty" validate:"omitempty,min=1"`
}

// PhotoConfirm marks one presigned upload as completed.
func PhotoConfirm(svc *photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}
		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Confirm(r.Context(), photos.ConfirmRequest{
			PhotoID:    chi.URLParam(r, "photoId"),
			PropertyID: chi.URLParam(r, "propertyId"),
			S3Key:      payload.S3Key,
			FileSize:   payload.FileSize,
		}, photos.ModeStrict)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

type confirmBatchEntry struct {
	PhotoID    string `json:"photoId" validate:"required"`
	PropertyID string `json:"propertyId" validate:"required"`
	S3Key      string `json:"s3Key" validate:"required"`
	FileSize   *int64 `json:"fileSize,omitempty" validate:"omitempty,min=1"`
}

type confirmBatchRequest struct {
	Photos []confirmBatchEntry `json:"photos" validate:"required,min=1,max=1000,dive"`
}

// PhotoConfirmBatch marks many presigned uploads as completed.
func PhotoConfirmBatch(svc *photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}
		var payload confirmBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries := make([]photos.BatchEntry, 0, len(payload.Photos))
		for _, p := range payload.Photos {
			entries = append(entries, photos.BatchEntry{
				PhotoID:    p.PhotoID,
				PropertyID: p.PropertyID,
				S3Key:      p.S3Key,
				FileSize:   p.FileSize,
			})
		}
		res, err := svc.ConfirmBatch(r.Context(), entries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// PhotoDelete removes a single photo and its stored object.
func PhotoDelete(svc *photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}
		if err := svc.Delete(r.Context(), chi.URLParam(r, "photoId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type deleteBatchRequest struct {
	PhotoIDs []string `json:"photoIds" validate:"required,min=1,max=1000,dive,required"`
}

// PhotoDeleteBatch removes many photos at once.
func PhotoDeleteBatch(svc *photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}
		var payload deleteBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.DeleteBatch(r.Context(), payload.PhotoIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

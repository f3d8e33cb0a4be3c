package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blaskocode/RapidUpload/api/responses"
	"github.com/blaskocode/RapidUpload/api/validators"
	"github.com/blaskocode/RapidUpload/internal/analysis"
	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
)

type triggerAnalysisRequest struct {
	PhotoIDs []string `json:"photoIds" validate:"required,min=1,max=1000,dive,required"`
}

// AnalysisTrigger starts analysis jobs for the given photos.
func AnalysisTrigger(svc *analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}
		var payload triggerAnalysisRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.TriggerBatch(r.Context(), payload.PhotoIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, summary)
	}
}

// AnalysisGet returns one analysis record.
func AnalysisGet(svc *analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}
		result, err := svc.Get(r.Context(), chi.URLParam(r, "analysisId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AnalysisGetByPhoto returns the analysis record for a photo.
func AnalysisGetByPhoto(svc *analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}
		result, err := svc.GetByPhoto(r.Context(), chi.URLParam(r, "photoId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AnalysisListByProperty returns a page of a property's analysis records.
func AnalysisListByProperty(svc *analysis.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analysis service unavailable"))
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByProperty(r.Context(), chi.URLParam(r, "propertyId"), params.Limit, params.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

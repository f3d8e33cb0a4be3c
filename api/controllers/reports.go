package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blaskocode/RapidUpload/api/responses"
	"github.com/blaskocode/RapidUpload/api/validators"
	"github.com/blaskocode/RapidUpload/internal/reports"
	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
)

type reportRequest struct {
	PhotoIDs []string `json:"photoIds,omitempty" validate:"omitempty,max=1000,dive,required"`
}

// ReportGenerate runs the report generator for a property and returns a
// download link. The body is optional; when present it restricts the report
// to the listed photos.
func ReportGenerate(svc *reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}
		var payload reportRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		report, err := svc.Generate(r.Context(), chi.URLParam(r, "propertyId"), payload.PhotoIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

package controllers

import (
	"net/http"

	"github.com/blaskocode/RapidUpload/api/responses"
	"github.com/blaskocode/RapidUpload/internal/cleanup"
	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
)

// CleanupAll wipes object storage and every table. Routed only outside
// production.
func CleanupAll(svc *cleanup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cleanup service unavailable"))
			return
		}
		report, err := svc.ClearAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blaskocode/RapidUpload/api/controllers"
	"github.com/blaskocode/RapidUpload/api/middleware"
	"github.com/blaskocode/RapidUpload/internal/analysis"
	"github.com/blaskocode/RapidUpload/internal/cleanup"
	"github.com/blaskocode/RapidUpload/internal/photos"
	"github.com/blaskocode/RapidUpload/internal/properties"
	"github.com/blaskocode/RapidUpload/internal/reports"
	"github.com/blaskocode/RapidUpload/pkg/config"
	"github.com/blaskocode/RapidUpload/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	photoService *photos.Service,
	propertyService *properties.Service,
	analysisService *analysis.Service,
	reportService *reports.Service,
	cleanupService *cleanup.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/properties", func(r chi.Router) {
			r.Post("/", controllers.PropertyCreate(propertyService, logg))
			r.Get("/", controllers.PropertyList(propertyService, logg))
			r.Post("/recompute-counts", controllers.PropertyRecomputeAllCounts(propertyService, logg))

			r.Route("/{propertyId}", func(r chi.Router) {
				r.Get("/", controllers.PropertyGet(propertyService, logg))
				r.Delete("/", controllers.PropertyDelete(propertyService, logg))
				r.Post("/recompute-count", controllers.PropertyRecomputeCount(propertyService, logg))
				r.Get("/photos", controllers.PropertyPhotos(propertyService, logg))
				r.Post("/photos/upload-url", controllers.PhotoUploadURL(photoService, logg))
				r.Post("/photos/upload-urls", controllers.PhotoUploadURLBatch(photoService, logg))
				r.Post("/photos/{photoId}/confirm", controllers.PhotoConfirm(photoService, logg))
				r.Get("/analyses", controllers.AnalysisListByProperty(analysisService, logg))
				r.Post("/report", controllers.ReportGenerate(reportService, logg))
			})
		})

		r.Route("/photos", func(r chi.Router) {
			r.Post("/confirm-batch", controllers.PhotoConfirmBatch(photoService, logg))
			r.Post("/delete-batch", controllers.PhotoDeleteBatch(photoService, logg))
			r.Delete("/{photoId}", controllers.PhotoDelete(photoService, logg))
			r.Get("/{photoId}/analysis", controllers.AnalysisGetByPhoto(analysisService, logg))
		})

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/trigger", controllers.AnalysisTrigger(analysisService, logg))
			r.Get("/{analysisId}", controllers.AnalysisGet(analysisService, logg))
		})

		if !cfg.App.IsProd() {
			r.Post("/admin/cleanup", controllers.CleanupAll(cleanupService, logg))
		}
	})

	return r
}

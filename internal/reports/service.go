// Package reports runs the property report generator and hands back a
// time-limited download link for the produced document.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	pkgerrors "github.com/blaskocode/RapidUpload/pkg/errors"
	"github.com/blaskocode/RapidUpload/pkg/logger"
	"github.com/blaskocode/RapidUpload/pkg/models"
)

type propertyStore interface {
	Get(ctx context.Context, propertyID string) (*models.Property, error)
}

type objectStore interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type invoker interface {
	InvokeSync(ctx context.Context, payload any) ([]byte, error)
}

type Service struct {
	properties  propertyStore
	store       objectStore
	fn          invoker
	log         *logger.Logger
	downloadTTL time.Duration
}

func NewService(properties propertyStore, store objectStore, fn invoker, log *logger.Logger, downloadTTL time.Duration) (*Service, error) {
	if properties == nil || store == nil || fn == nil || log == nil {
		return nil, fmt.Errorf("reports service: nil dependency")
	}
	if downloadTTL <= 0 {
		return nil, fmt.Errorf("reports service: download ttl must be positive")
	}
	return &Service{
		properties:  properties,
		store:       store,
		fn:          fn,
		log:         log,
		downloadTTL: downloadTTL,
	}, nil
}

// jobPayload is the input the report generator receives.
type jobPayload struct {
	PropertyID   string   `json:"propertyId"`
	PropertyName string   `json:"propertyName"`
	PhotoIDs     []string `json:"photoIds,omitempty"`
}

// generatorResponse is the proxy-style envelope the generator returns; its
// Body is a nested JSON document.
type generatorResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type generatorBody struct {
	ReportKey      string `json:"reportKey"`
	PhotosIncluded int    `json:"photosIncluded"`
}

// Report locates a generated report and carries a presigned download URL.
type Report struct {
	ReportKey      string `json:"reportKey"`
	DownloadURL    string `json:"downloadUrl"`
	PhotosIncluded int    `json:"photosIncluded"`
}

// Generate runs the report function synchronously for a property, optionally
// restricted to the given photos, and presigns a GET for the produced key.
func (s *Service) Generate(ctx context.Context, propertyID string, photoIDs []string) (*Report, error) {
	property, err := s.properties.Get(ctx, propertyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading property")
	}
	if property == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("property %s not found", propertyID))
	}

	raw, err := s.fn.InvokeSync(ctx, jobPayload{
		PropertyID:   propertyID,
		PropertyName: property.Name,
		PhotoIDs:     photoIDs,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "running report generator")
	}

	var res generatorResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding report response")
	}
	if res.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("report generator returned status %d", res.StatusCode))
	}
	var body generatorBody
	if err := json.Unmarshal([]byte(res.Body), &body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding report response body")
	}
	if body.ReportKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "report generator returned no report key")
	}

	url, err := s.store.PresignGet(ctx, body.ReportKey, s.downloadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presigning report download")
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"property_id": propertyID,
		"report_key":  body.ReportKey,
		"photos":      body.PhotosIncluded,
	}), "report generated")
	return &Report{
		ReportKey:      body.ReportKey,
		DownloadURL:    url,
		PhotosIncluded: body.PhotosIncluded,
	}, nil
}

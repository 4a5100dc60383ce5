// Package geocoding resolves free-text addresses to coordinates through the
// Google Geocoding API.
package geocoding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

const providerName = "geocoding"

// Google status values.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Geocoder resolves an address to a single position.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Coordinates, error)
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location model.Coordinates `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Client calls the geocode/json endpoint.
type Client struct {
	httpClient *resty.Client
	apiKey     string
}

// Ensure Client implements Geocoder
var _ Geocoder = (*Client)(nil)

// NewClient creates a geocoding client rooted at baseURL
// (for example https://maps.googleapis.com/maps/api).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{httpClient: httpClient, apiKey: apiKey}
}

// Geocode returns the first result's location. ZERO_RESULTS maps to
// apperrors.ErrNotFound; every other non-OK status is an upstream error
// carrying Google's status and message.
func (c *Client) Geocode(ctx context.Context, address string) (model.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Coordinates{}, fmt.Errorf("%w: address parameter is required", apperrors.ErrValidation)
	}
	if c.apiKey == "" {
		return model.Coordinates{}, fmt.Errorf("%w: geocoding api key is not set", apperrors.ErrNotConfigured)
	}

	log := logger.FromContext(ctx)

	var result geocodeResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		SetQueryParam("key", c.apiKey).
		SetResult(&result).
		SetError(&result).
		Get("/geocode/json")
	if err != nil {
		observer.IncGeocodeLookup("upstream", "error")
		log.Error("Geocoding request failed", zap.String("address", address), zap.Error(err))
		return model.Coordinates{}, apperrors.NewUpstream(providerName, 0, "request failed", err)
	}

	switch {
	case result.Status == statusOK && len(result.Results) > 0:
		observer.IncGeocodeLookup("upstream", "hit")
		return result.Results[0].Geometry.Location, nil
	case result.Status == statusZeroResults:
		observer.IncGeocodeLookup("upstream", "zero_results")
		log.Warn("Geocoding returned no results", zap.String("address", address))
		return model.Coordinates{}, fmt.Errorf("%w: Geocoding failed: %s", apperrors.ErrNotFound, result.Status)
	default:
		observer.IncGeocodeLookup("upstream", "error")
		status := result.Status
		if status == "" {
			status = resp.Status()
		}
		log.Warn("Geocoding API error",
			zap.String("address", address),
			zap.String("status", status),
			zap.String("error_message", result.ErrorMessage),
		)
		detail := "Geocoding failed: " + status
		if result.ErrorMessage != "" {
			detail += " - " + result.ErrorMessage
		}
		return model.Coordinates{}, apperrors.NewUpstream(providerName, resp.StatusCode(), detail, nil)
	}
}

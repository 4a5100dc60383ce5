package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/geocoding"
)

// GeocodeHandler proxies address lookups.
type GeocodeHandler struct {
	geocoder geocoding.Geocoder
}

// NewGeocodeHandler creates the geocode handler.
func NewGeocodeHandler(geocoder geocoding.Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

// Register mounts the geocode route.
func (h *GeocodeHandler) Register(e *echo.Echo) {
	e.GET("/api/geocode", h.Geocode)
}

// Geocode handles GET /api/geocode?address=.
func (h *GeocodeHandler) Geocode(c echo.Context) error {
	coords, err := h.geocoder.Geocode(c.Request().Context(), c.QueryParam("address"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, coords)
}

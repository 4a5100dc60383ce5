package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/usecase"
)

// PagingOptions holds the list and map page sizes.
type PagingOptions struct {
	DefaultLimit int
	MapLimit     int
	MaxLimit     int
}

// ContactsHandler serves contact listing, editing and the map view.
type ContactsHandler struct {
	leads  *usecase.LeadService
	maps   *usecase.MapService
	paging PagingOptions
}

// NewContactsHandler creates the contacts handler. maps may be nil when
// geocoding is not wired, in which case the map route is not registered.
func NewContactsHandler(leads *usecase.LeadService, maps *usecase.MapService, paging PagingOptions) *ContactsHandler {
	return &ContactsHandler{leads: leads, maps: maps, paging: paging}
}

// UpdateContactResponse is returned by PUT /api/contacts/:id.
type UpdateContactResponse struct {
	Message        string         `json:"message"`
	UpdatedContact *model.Contact `json:"updatedContact"`
}

// MarkOpenedResponse is returned by POST /api/contacts/:id/mark-opened.
type MarkOpenedResponse struct {
	Message        string         `json:"message"`
	ContactID      string         `json:"contactId"`
	OpenedAt       *time.Time     `json:"opened_at"`
	UpdatedContact *model.Contact `json:"updatedContact"`
}

// Register mounts the contact routes; the map route only when a map service is set.
func (h *ContactsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/contacts")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.POST("/:id/mark-opened", h.MarkOpened)
	if h.maps != nil {
		e.GET("/api/map/contacts", h.Map)
	}
}

// List handles GET /api/contacts with filter and paging query parameters.
func (h *ContactsHandler) List(c echo.Context) error {
	q := c.QueryParams()
	page := contactquery.ParsePage(q, h.paging.DefaultLimit, h.paging.MaxLimit)
	result, err := h.leads.ListContacts(c.Request().Context(), contactquery.ParseFilter(q), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get handles GET /api/contacts/:id.
func (h *ContactsHandler) Get(c echo.Context) error {
	contact, err := h.leads.GetContact(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

// Update handles PUT /api/contacts/:id, merging a partial JSON object.
func (h *ContactsHandler) Update(c echo.Context) error {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil || patch == nil {
		return fmt.Errorf("%w: request body must be a JSON object", apperrors.ErrBadRequest)
	}
	contact, err := h.leads.UpdateContact(c.Request().Context(), strings.TrimSpace(c.Param("id")), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UpdateContactResponse{
		Message:        "Contact updated successfully",
		UpdatedContact: contact,
	})
}

// MarkOpened handles POST /api/contacts/:id/mark-opened.
func (h *ContactsHandler) MarkOpened(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	contact, err := h.leads.MarkOpened(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MarkOpenedResponse{
		Message:        "Contact marked as email opened successfully",
		ContactID:      id,
		OpenedAt:       contact.LastEmailOpenedTimestamp,
		UpdatedContact: contact,
	})
}

// Map handles GET /api/map/contacts, returning a page with coordinates.
func (h *ContactsHandler) Map(c echo.Context) error {
	q := c.QueryParams()
	page := contactquery.ParsePage(q, h.paging.MapLimit, h.paging.MaxLimit)
	result, err := h.maps.MapContacts(c.Request().Context(), contactquery.ParseFilter(q), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bahafit/internal/model"
	"bahafit/internal/repository"
	"bahafit/internal/service"
)

// AdminHandler serves the back-office moderation endpoints. Every route is
// mounted behind the admin role check.
type AdminHandler struct {
	admin         service.AdminService
	registrations service.RegistrationService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin service.AdminService, registrations service.RegistrationService) *AdminHandler {
	return &AdminHandler{admin: admin, registrations: registrations}
}

// EventPatchRequest is the moderation change for an event.
type EventPatchRequest struct {
	Status   *model.EventStatus `json:"status,omitempty"`
	Featured *bool              `json:"featured,omitempty"`
}

// ListingPatchRequest is the moderation change for a listing.
type ListingPatchRequest struct {
	Status   *model.EventStatus `json:"status,omitempty"`
	Featured *bool              `json:"featured,omitempty"`
	Verified *bool              `json:"verified,omitempty"`
}

// RegistrationStatusRequest sets a registration status.
type RegistrationStatusRequest struct {
	Status model.RegistrationStatus `json:"status" validate:"required"`
}

// ListEvents godoc
// @Summary List all events
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Event status"
// @Param eventType query string false "Event type"
// @Param featured query bool false "Featured flag"
// @Param origin query string false "cms or user"
// @Success 200 {array} model.Event
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/events [get]
func (h *AdminHandler) ListEvents(c echo.Context) error {
	featured, err := queryBool(c, "featured")
	if err != nil {
		return err
	}
	status := model.EventStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return badRequest("invalid status")
	}
	events, err := h.admin.ListEvents(c.Request().Context(), service.AdminEventQuery{
		Status:    status,
		EventType: c.QueryParam("eventType"),
		Featured:  featured,
		Origin:    model.EventOrigin(c.QueryParam("origin")),
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get any event
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} model.Event
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/events/{id} [get]
func (h *AdminHandler) GetEvent(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	event, err := h.admin.GetEvent(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, event)
}

// PatchEvent godoc
// @Summary Moderate an event
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body EventPatchRequest true "Status and featured flag"
// @Success 200 {object} model.Event
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/events/{id} [patch]
func (h *AdminHandler) PatchEvent(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req EventPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	event, err := h.admin.PatchEvent(c.Request().Context(), id, repository.EventPatch{
		Status:   req.Status,
		Featured: req.Featured,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/events/{id} [delete]
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.admin.DeleteEvent(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListListings godoc
// @Summary List all listings
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Listing status"
// @Param category query string false "Category"
// @Param featured query bool false "Featured flag"
// @Param verified query bool false "Verified flag"
// @Success 200 {array} model.Listing
// @Router /admin/listings [get]
func (h *AdminHandler) ListListings(c echo.Context) error {
	featured, err := queryBool(c, "featured")
	if err != nil {
		return err
	}
	verified, err := queryBool(c, "verified")
	if err != nil {
		return err
	}
	status := model.EventStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return badRequest("invalid status")
	}
	listings, err := h.admin.ListListings(c.Request().Context(), repository.ListingFilter{
		Status:   status,
		Category: c.QueryParam("category"),
		Featured: featured,
		Verified: verified,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, listings)
}

// GetListing godoc
// @Summary Get any listing
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 200 {object} model.Listing
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/listings/{id} [get]
func (h *AdminHandler) GetListing(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	listing, err := h.admin.GetListing(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, listing)
}

// PatchListing godoc
// @Summary Moderate a listing
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Param request body ListingPatchRequest true "Status, featured and verified flags"
// @Success 200 {object} model.Listing
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/listings/{id} [patch]
func (h *AdminHandler) PatchListing(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req ListingPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	listing, err := h.admin.PatchListing(c.Request().Context(), id, repository.ListingPatch{
		Status:   req.Status,
		Featured: req.Featured,
		Verified: req.Verified,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, listing)
}

// DeleteListing godoc
// @Summary Delete a listing
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Listing ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/listings/{id} [delete]
func (h *AdminHandler) DeleteListing(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.admin.DeleteListing(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListRegistrations godoc
// @Summary List registrations
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventId query string false "Event ID"
// @Success 200 {array} model.Registration
// @Router /admin/registrations [get]
func (h *AdminHandler) ListRegistrations(c echo.Context) error {
	eventID, err := queryUUID(c, "eventId")
	if err != nil {
		return err
	}
	regs, err := h.registrations.List(c.Request().Context(), eventID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, regs)
}

// RegistrationStats godoc
// @Summary Registration counts by status and payment status
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventId query string false "Event ID"
// @Success 200 {object} model.RegistrationStats
// @Router /admin/registrations/stats [get]
func (h *AdminHandler) RegistrationStats(c echo.Context) error {
	eventID, err := queryUUID(c, "eventId")
	if err != nil {
		return err
	}
	stats, err := h.registrations.Stats(c.Request().Context(), eventID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// CheckIn godoc
// @Summary Check in an attendee
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} model.Registration
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/registrations/{id}/check-in [post]
func (h *AdminHandler) CheckIn(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.registrations.CheckIn(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, reg)
}

// CancelRegistration godoc
// @Summary Cancel a registration
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} model.Registration
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/registrations/{id}/cancel [post]
func (h *AdminHandler) CancelRegistration(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.registrations.Cancel(c.Request().Context(), CurrentUser(c), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, reg)
}

// SetRegistrationStatus godoc
// @Summary Change a registration status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param request body RegistrationStatusRequest true "New status"
// @Success 200 {object} model.Registration
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/registrations/{id}/status [patch]
func (h *AdminHandler) SetRegistrationStatus(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req RegistrationStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err)
	}
	reg, err := h.registrations.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, reg)
}

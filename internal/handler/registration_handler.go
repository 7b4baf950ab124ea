package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bahafit/internal/service"
)

// RegistrationHandler handles checkout submissions and the user's own registrations.
type RegistrationHandler struct {
	registrations service.RegistrationService
	dashboard     service.DashboardService
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(registrations service.RegistrationService, dashboard service.DashboardService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, dashboard: dashboard}
}

// CreateRegistration godoc
// @Summary Register for an event
// @Description Re-prices the ticket on the server. Free tickets are confirmed at once; paid ones return a paymentUrl or manual payment instructions.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.RegistrationInput true "Checkout submission"
// @Success 201 {object} service.RegistrationResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /registrations [post]
func (h *RegistrationHandler) CreateRegistration(c echo.Context) error {
	var in service.RegistrationInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return validationError(err)
	}

	result, err := h.registrations.Register(c.Request().Context(), CurrentUser(c), in)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// CancelRegistration godoc
// @Summary Cancel your registration
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} model.Registration
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /registrations/{id}/cancel [post]
func (h *RegistrationHandler) CancelRegistration(c echo.Context) error {
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

// ListMyRegistrations godoc
// @Summary Your registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Registration
// @Router /registrations [get]
func (h *RegistrationHandler) ListMyRegistrations(c echo.Context) error {
	regs, err := h.registrations.ListForUser(c.Request().Context(), CurrentUser(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, regs)
}

// Dashboard godoc
// @Summary Attending and hosting lists
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Dashboard
// @Router /dashboard [get]
func (h *RegistrationHandler) Dashboard(c echo.Context) error {
	d, err := h.dashboard.Get(c.Request().Context(), CurrentUser(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, d)
}

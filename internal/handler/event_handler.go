package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"bahafit/internal/service"
)

// EventHandler serves the event catalog, checkout views and user-submitted events.
type EventHandler struct {
	events service.EventService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(events service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// ListEvents godoc
// @Summary List published events
// @Tags events
// @Produce json
// @Param eventType query string false "Event type"
// @Param search query string false "Title search"
// @Param featured query bool false "Featured only"
// @Param upcoming query bool false "Only events that have not started"
// @Param limit query int false "Maximum results (50 max)"
// @Success 200 {object} service.EventList
// @Failure 400 {object} errors.ErrorResponse
// @Router /events [get]
func (h *EventHandler) ListEvents(c echo.Context) error {
	featured, err := queryBool(c, "featured")
	if err != nil {
		return err
	}
	upcoming, err := queryBool(c, "upcoming")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	q := service.EventQuery{
		EventType: c.QueryParam("eventType"),
		Search:    c.QueryParam("search"),
		Featured:  featured,
		Upcoming:  upcoming != nil && *upcoming,
		Limit:     limit,
	}
	list, err := h.events.List(c.Request().Context(), q)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetEvent godoc
// @Summary Get a published event by slug
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} service.EventDetail
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{slug} [get]
func (h *EventHandler) GetEvent(c echo.Context) error {
	detail, err := h.events.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// Checkout godoc
// @Summary Checkout view of an event
// @Description Ticket quotes with early-bird savings, spots left and sold-out flag.
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} pricing.CheckoutView
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{slug}/checkout [get]
func (h *EventHandler) Checkout(c echo.Context) error {
	view, err := h.events.Checkout(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, view)
}

// CheckoutPage serves the checkout page data for signed-in users and sends
// everyone else to sign in first.
func (h *EventHandler) CheckoutPage(c echo.Context) error {
	if CurrentUser(c) == nil {
		return c.Redirect(http.StatusFound, "/auth/signin?callbackUrl="+c.Request().URL.Path)
	}
	return h.Checkout(c)
}

// CreateUserEvent godoc
// @Summary Submit an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateEventInput true "Event"
// @Success 201 {object} model.Event
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /events/user [post]
func (h *EventHandler) CreateUserEvent(c echo.Context) error {
	var in service.CreateEventInput
	if err := c.Bind(&in); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return validationError(err)
	}

	event, err := h.events.CreateUserEvent(c.Request().Context(), CurrentUser(c), in)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, event)
}

// UpdateUserEvent godoc
// @Summary Update an event you submitted
// @Description Partial update; keys are event fields in camelCase. Identifiers cannot be changed.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body map[string]interface{} true "Fields to change"
// @Success 200 {object} model.Event
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/user/{id} [patch]
func (h *EventHandler) UpdateUserEvent(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return badRequest("invalid request body")
	}
	if len(patch) == 0 {
		return badRequest("no fields to update")
	}

	event, err := h.events.UpdateUserEvent(c.Request().Context(), CurrentUser(c), id, patch)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, event)
}

// ListHostedEvents godoc
// @Summary Events you submitted
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Event
// @Failure 401 {object} errors.ErrorResponse
// @Router /events/user [get]
func (h *EventHandler) ListHostedEvents(c echo.Context) error {
	events, err := h.events.ListHosted(c.Request().Context(), CurrentUser(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, events)
}

package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"bahafit/internal/service"
)

// maxWebhookBody is the largest payload the payment provider sends.
const maxWebhookBody = 65536

// PaymentHandler receives payment provider notifications.
type PaymentHandler struct {
	registrations service.RegistrationService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(registrations service.RegistrationService) *PaymentHandler {
	return &PaymentHandler{registrations: registrations}
}

// WebhookResponse acknowledges a notification.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// Webhook godoc
// @Summary Payment provider webhook
// @Description Verifies the Stripe-Signature header and applies checkout outcomes to registrations.
// @Tags payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest("could not read body")
	}
	signature := c.Request().Header.Get("Stripe-Signature")
	if err := h.registrations.HandleWebhook(c.Request().Context(), payload, signature); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, WebhookResponse{Received: true})
}

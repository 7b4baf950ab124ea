package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bahafit/internal/errors"
)

const testWebhookSecret = "whsec_test"

func signPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func sessionEvent(eventType, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": %q,
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"client_reference_id": "reg-ref",
			"payment_status": %q,
			"metadata": {"registration_id": "reg-meta"}
		}}
	}`, eventType, paymentStatus))
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := NewStripeGateway("sk_test", testWebhookSecret, nil)

	tests := []struct {
		name      string
		eventType string
		payStatus string
		wantKind  WebhookKind
	}{
		{"completed and paid", "checkout.session.completed", "paid", WebhookPaymentCompleted},
		{"completed but unpaid", "checkout.session.completed", "unpaid", WebhookIgnored},
		{"expired", "checkout.session.expired", "unpaid", WebhookPaymentExpired},
		{"async success", "checkout.session.async_payment_succeeded", "paid", WebhookPaymentCompleted},
		{"unrelated event", "customer.created", "", WebhookIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := sessionEvent(tt.eventType, tt.payStatus)
			evt, err := g.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, evt.Kind)
			assert.Equal(t, "evt_1", evt.ID)
			if tt.eventType != "customer.created" {
				assert.Equal(t, "cs_test_1", evt.SessionID)
				assert.Equal(t, "reg-meta", evt.RegistrationID)
			}
		})
	}
}

func TestStripeGateway_ParseWebhookRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test", testWebhookSecret, nil)
	payload := sessionEvent("checkout.session.completed", "paid")

	_, err := g.ParseWebhook(payload, signPayload(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, apperrors.ErrInvalidWebhook)

	_, err = g.ParseWebhook(payload, signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, apperrors.ErrInvalidWebhook)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(3500), MinorUnits(decimal.NewFromInt(35)))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(0), MinorUnits(decimal.Zero))
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bahafit/internal/auth"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/notify"
	"bahafit/internal/payment"
	"bahafit/internal/pricing"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type registrationFixture struct {
	events        *MockEventRepository
	registrations *MockRegistrationRepository
	gateway       *MockGateway
	publisher     *recordingPublisher
	user          *auth.Identity
}

func newRegistrationFixture() *registrationFixture {
	return &registrationFixture{
		events:        new(MockEventRepository),
		registrations: new(MockRegistrationRepository),
		gateway:       new(MockGateway),
		publisher:     &recordingPublisher{},
		user:          &auth.Identity{ID: uuid.New(), Email: "ana@example.com", Role: model.RoleUser, IsActive: true},
	}
}

func (f *registrationFixture) service(withGateway bool) RegistrationService {
	d := RegistrationDeps{
		Events:        f.events,
		Registrations: f.registrations,
		Tx:            &fakeTransactor{events: f.events, registrations: f.registrations},
		URLs:          NewSiteURLs("https://bahafit.test"),
		Publisher:     f.publisher,
		Log:           zap.NewNop(),
		Now:           func() time.Time { return testNow },
	}
	if withGateway {
		d.Gateway = f.gateway
	}
	return NewRegistrationService(d)
}

func intPtr(v int) *int { return &v }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func freeEvent() *model.Event {
	return &model.Event{
		ID:                   uuid.New(),
		Title:                "Sunrise Yoga",
		Slug:                 "sunrise-yoga",
		Status:               model.EventStatusPublished,
		RequiresRegistration: true,
		IsFree:               true,
		Capacity:             intPtr(10),
		CurrentRegistrations: 3,
	}
}

func tieredEvent() *model.Event {
	deadline := testNow.Add(24 * time.Hour)
	return &model.Event{
		ID:                   uuid.New(),
		Title:                "Nassau 5K",
		Slug:                 "nassau-5k",
		Status:               model.EventStatusPublished,
		RequiresRegistration: true,
		Capacity:             intPtr(100),
		EarlyBirdDeadline:    &deadline,
		Pricing: []model.PricingTier{
			{TierName: "Standard", Price: decimal.NewFromInt(50), Currency: "BSD", EarlyBirdPrice: decPtr(35)},
			{TierName: "VIP", Price: decimal.NewFromInt(120), Currency: "BSD", Capacity: intPtr(2)},
		},
	}
}

func (f *registrationFixture) expectCreate() {
	f.registrations.On("Create", mock.Anything, mock.AnythingOfType("*model.Registration")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Registration).ID = uuid.New()
		}).
		Return(nil)
}

func TestRegistrationService_Register_FreeEvent(t *testing.T) {
	f := newRegistrationFixture()
	event := freeEvent()
	f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)
	f.registrations.On("FindActiveByUserAndEvent", mock.Anything, f.user.ID, event.ID).Return(nil, nil)
	f.events.On("ReserveSpot", mock.Anything, event.ID).Return(true, nil)
	f.expectCreate()

	result, err := f.service(true).Register(context.Background(), f.user, RegistrationInput{
		EventID: event.ID,
		Price:   decimal.Zero,
	})
	require.NoError(t, err)

	assert.Equal(t, pricing.StateCompleted, result.State)
	assert.Empty(t, result.PaymentURL)
	assert.NotEqual(t, uuid.Nil, result.Registration.ID)
	assert.Equal(t, model.RegistrationStatusConfirmed, result.Registration.Status)
	assert.Equal(t, model.PaymentStatusFree, result.Registration.PaymentStatus)
	assert.True(t, result.Registration.Price.IsZero())
	assert.Equal(t, []string{notify.RegistrationCreated, notify.RegistrationConfirmed}, f.publisher.keys)
	f.gateway.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything)
	f.events.AssertExpectations(t)
	f.registrations.AssertExpectations(t)
}

func TestRegistrationService_Register_PaidRedirectsToPayment(t *testing.T) {
	f := newRegistrationFixture()
	event := tieredEvent()
	f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)
	f.registrations.On("FindActiveByUserAndEvent", mock.Anything, f.user.ID, event.ID).Return(nil, nil)
	f.events.On("ReserveSpot", mock.Anything, event.ID).Return(true, nil)
	f.expectCreate()
	f.gateway.On("CreateCheckout", mock.Anything, mock.MatchedBy(func(req payment.CheckoutRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(35)) &&
			req.Currency == "BSD" &&
			req.TicketType == "Standard" &&
			req.CustomerEmail == "ana@example.com" &&
			req.CancelURL != "" && req.SuccessURL != ""
	})).Return(&payment.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil)
	f.registrations.On("Update", mock.Anything, mock.Anything, map[string]interface{}{"payment_reference": "cs_test_1"}).Return(nil)

	result, err := f.service(true).Register(context.Background(), f.user, RegistrationInput{
		EventID:    event.ID,
		TicketType: "Standard",
		Price:      decimal.NewFromInt(35),
		Currency:   "BSD",
	})
	require.NoError(t, err)

	assert.Equal(t, pricing.StateRedirectedToPayment, result.State)
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", result.PaymentURL)
	assert.Equal(t, model.RegistrationStatusPending, result.Registration.Status)
	assert.Equal(t, model.PaymentStatusPending, result.Registration.PaymentStatus)
	assert.True(t, result.Registration.Price.Equal(decimal.NewFromInt(35)))
	assert.Equal(t, "cs_test_1", result.Registration.PaymentReference)
	assert.Equal(t, []string{notify.RegistrationCreated}, f.publisher.keys)
	f.gateway.AssertExpectations(t)
}

func TestRegistrationService_Register_PaidWithoutGateway(t *testing.T) {
	f := newRegistrationFixture()
	event := tieredEvent()
	f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)
	f.registrations.On("FindActiveByUserAndEvent", mock.Anything, f.user.ID, event.ID).Return(nil, nil)
	f.events.On("ReserveSpot", mock.Anything, event.ID).Return(true, nil)
	f.registrations.On("CountActiveByTier", mock.Anything, event.ID).Return(map[string]int64{}, nil)
	f.expectCreate()

	result, err := f.service(false).Register(context.Background(), f.user, RegistrationInput{
		EventID:    event.ID,
		TicketType: "VIP",
		Price:      decimal.NewFromInt(120),
		Currency:   "BSD",
	})
	require.NoError(t, err)

	assert.Equal(t, pricing.StatePaymentInstructionsPending, result.State)
	assert.Equal(t, ManualPaymentMessage, result.Message)
	assert.Empty(t, result.PaymentURL)
	assert.Equal(t, model.RegistrationStatusPending, result.Registration.Status)
	assert.Equal(t, "VIP", result.Registration.TicketType)
}

func TestRegistrationService_Register_Rejections(t *testing.T) {
	tests := []struct {
		name          string
		event         func() *model.Event
		input         func(e *model.Event) RegistrationInput
		setupMock     func(f *registrationFixture, e *model.Event)
		expectedError error
	}{
		{
			name:  "event not published",
			event: func() *model.Event { e := freeEvent(); e.Status = model.EventStatusDraft; return e },
			input: func(e *model.Event) RegistrationInput {
				return RegistrationInput{EventID: e.ID}
			},
			expectedError: apperrors.ErrRegistrationClosed,
		},
		{
			name:  "submitted price is stale",
			event: tieredEvent,
			input: func(e *model.Event) RegistrationInput {
				return RegistrationInput{EventID: e.ID, TicketType: "Standard", Price: decimal.NewFromInt(50), Currency: "BSD"}
			},
			expectedError: apperrors.ErrPriceChanged,
		},
		{
			name:  "unknown ticket type",
			event: tieredEvent,
			input: func(e *model.Event) RegistrationInput {
				return RegistrationInput{EventID: e.ID, TicketType: "Backstage", Price: decimal.NewFromInt(50)}
			},
			expectedError: apperrors.ErrValidationFailed,
		},
		{
			name:  "capacity already reached",
			event: func() *model.Event { e := freeEvent(); e.CurrentRegistrations = 10; return e },
			input: func(e *model.Event) RegistrationInput {
				return RegistrationInput{EventID: e.ID}
			},
			expectedError: apperrors.ErrSoldOut,
		},
		{
			name:  "already registered",
			event: freeEvent,
			input: func(e *model.Event) RegistrationInput {
				return RegistrationInput{EventID: e.ID}
			},
			setupMock: func(f *registrationFixture, e *model.Event) {
				f.events.On("ReserveSpot", mock.Anything, e.ID).Return(true, nil)
				f.registrations.On("FindActiveByUserAndEvent", mock.Anything, f.user.ID, e.ID).
					Return(&model.Registration{ID: uuid.New(), Status: model.RegistrationStatusConfirmed}, nil)
			},
			expectedError: apperrors.ErrAlreadyRegistered,
		},
		{
			name:  "last spot taken concurrently",
			event: freeEvent,
			input: func(e *model.Event) RegistrationInput {
				return RegistrationInput{EventID: e.ID}
			},
			setupMock: func(f *registrationFixture, e *model.Event) {
				f.registrations.On("FindActiveByUserAndEvent", mock.Anything, f.user.ID, e.ID).Return(nil, nil)
				f.events.On("ReserveSpot", mock.Anything, e.ID).Return(false, nil)
			},
			expectedError: apperrors.ErrSoldOut,
		},
		{
			name:  "tier capacity reached",
			event: tieredEvent,
			input: func(e *model.Event) RegistrationInput {
				return RegistrationInput{EventID: e.ID, TicketType: "VIP", Price: decimal.NewFromInt(120), Currency: "BSD"}
			},
			setupMock: func(f *registrationFixture, e *model.Event) {
				f.registrations.On("FindActiveByUserAndEvent", mock.Anything, f.user.ID, e.ID).Return(nil, nil)
				f.events.On("ReserveSpot", mock.Anything, e.ID).Return(true, nil)
				f.registrations.On("CountActiveByTier", mock.Anything, e.ID).Return(map[string]int64{"VIP": 2}, nil)
			},
			expectedError: apperrors.ErrSoldOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture()
			event := tt.event()
			f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)
			if tt.setupMock != nil {
				tt.setupMock(f, event)
			}

			result, err := f.service(true).Register(context.Background(), f.user, tt.input(event))

			assert.ErrorIs(t, err, tt.expectedError)
			assert.Nil(t, result)
			f.registrations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			assert.Empty(t, f.publisher.keys)
		})
	}
}

func TestRegistrationService_Register_RequiresSession(t *testing.T) {
	f := newRegistrationFixture()
	_, err := f.service(true).Register(context.Background(), nil, RegistrationInput{EventID: uuid.New()})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRegistrationService_Register_GatewayFailureReleasesSpot(t *testing.T) {
	f := newRegistrationFixture()
	event := tieredEvent()
	f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)
	f.registrations.On("FindActiveByUserAndEvent", mock.Anything, f.user.ID, event.ID).Return(nil, nil)
	f.events.On("ReserveSpot", mock.Anything, event.ID).Return(true, nil)
	f.registrations.On("Create", mock.Anything, mock.AnythingOfType("*model.Registration")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.Registration).ID = uuid.New()
		}).
		Return(nil)
	f.gateway.On("CreateCheckout", mock.Anything, mock.Anything).Return(nil, errors.New("stripe down"))
	f.registrations.On("FindByIDForUpdate", mock.Anything, mock.AnythingOfType("uuid.UUID")).
		Return(&model.Registration{ID: uuid.New(), EventID: event.ID, Status: model.RegistrationStatusPending}, nil)
	f.registrations.On("Cancel", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(nil)
	f.registrations.On("Update", mock.Anything, mock.AnythingOfType("uuid.UUID"), map[string]interface{}{
		"payment_status": model.PaymentStatusFailed,
	}).Return(nil)
	f.events.On("ReleaseSpot", mock.Anything, event.ID).Return(nil)

	result, err := f.service(true).Register(context.Background(), f.user, RegistrationInput{
		EventID:    event.ID,
		TicketType: "Standard",
		Price:      decimal.NewFromInt(35),
		Currency:   "BSD",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	f.events.AssertCalled(t, "ReleaseSpot", mock.Anything, event.ID)
	f.registrations.AssertCalled(t, "Cancel", mock.Anything, mock.AnythingOfType("uuid.UUID"))
}

func webhookRegistration(eventID uuid.UUID, status model.RegistrationStatus) *model.Registration {
	return &model.Registration{
		ID:               uuid.New(),
		EventID:          eventID,
		UserID:           uuid.New(),
		Price:            decimal.NewFromInt(35),
		Currency:         "BSD",
		Status:           status,
		PaymentStatus:    model.PaymentStatusPending,
		PaymentReference: "cs_test_1",
	}
}

func TestRegistrationService_HandleWebhook(t *testing.T) {
	tests := []struct {
		name          string
		kind          payment.WebhookKind
		status        model.RegistrationStatus
		wantStatus    model.RegistrationStatus
		wantPayStatus model.PaymentStatus
		wantRelease   bool
		wantKeys      []string
	}{
		{
			name:          "completed payment confirms",
			kind:          payment.WebhookPaymentCompleted,
			status:        model.RegistrationStatusPending,
			wantStatus:    model.RegistrationStatusConfirmed,
			wantPayStatus: model.PaymentStatusPaid,
			wantKeys:      []string{notify.RegistrationConfirmed},
		},
		{
			name:          "expired checkout cancels and releases the spot",
			kind:          payment.WebhookPaymentExpired,
			status:        model.RegistrationStatusPending,
			wantStatus:    model.RegistrationStatusCancelled,
			wantPayStatus: model.PaymentStatusFailed,
			wantRelease:   true,
			wantKeys:      []string{notify.RegistrationCancelled},
		},
		{
			name:   "replayed completion is a no-op",
			kind:   payment.WebhookPaymentCompleted,
			status: model.RegistrationStatusConfirmed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture()
			event := tieredEvent()
			reg := webhookRegistration(event.ID, tt.status)
			locked := *reg

			f.gateway.On("ParseWebhook", []byte("payload"), "sig").
				Return(&payment.WebhookEvent{ID: "evt_1", Kind: tt.kind, SessionID: "cs_test_1"}, nil)
			f.registrations.On("FindByPaymentReference", mock.Anything, "cs_test_1").Return(reg, nil)
			f.registrations.On("FindByIDForUpdate", mock.Anything, reg.ID).Return(&locked, nil)
			f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil).Maybe()
			switch tt.wantStatus {
			case model.RegistrationStatusConfirmed:
				f.registrations.On("UpdateStatus", mock.Anything, reg.ID, model.RegistrationStatusConfirmed).Return(nil)
			case model.RegistrationStatusCancelled:
				f.registrations.On("Cancel", mock.Anything, reg.ID).Return(nil)
			}
			if tt.wantPayStatus != "" {
				f.registrations.On("Update", mock.Anything, reg.ID, map[string]interface{}{"payment_status": tt.wantPayStatus}).Return(nil)
			}
			if tt.wantRelease {
				f.events.On("ReleaseSpot", mock.Anything, event.ID).Return(nil)
			}

			err := f.service(true).HandleWebhook(context.Background(), []byte("payload"), "sig")
			require.NoError(t, err)

			if tt.wantStatus == "" {
				f.registrations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
				f.registrations.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
				f.registrations.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
			}
			if !tt.wantRelease {
				f.events.AssertNotCalled(t, "ReleaseSpot", mock.Anything, mock.Anything)
			}
			assert.Equal(t, tt.wantKeys, f.publisher.keys)
			f.registrations.AssertExpectations(t)
		})
	}
}

func TestRegistrationService_HandleWebhook_Errors(t *testing.T) {
	f := newRegistrationFixture()
	err := f.service(false).HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.ErrorIs(t, err, apperrors.ErrProviderNotConfigured)

	f.gateway.On("ParseWebhook", mock.Anything, "bad").Return(nil, apperrors.ErrInvalidWebhook)
	err = f.service(true).HandleWebhook(context.Background(), []byte("{}"), "bad")
	assert.ErrorIs(t, err, apperrors.ErrInvalidWebhook)

	f.gateway.On("ParseWebhook", mock.Anything, "other").Return(&payment.WebhookEvent{ID: "evt_2", Kind: payment.WebhookIgnored}, nil)
	assert.NoError(t, f.service(true).HandleWebhook(context.Background(), []byte("{}"), "other"))
	f.registrations.AssertNotCalled(t, "FindByPaymentReference", mock.Anything, mock.Anything)
}

func TestRegistrationService_Cancel(t *testing.T) {
	f := newRegistrationFixture()
	event := freeEvent()
	reg := &model.Registration{ID: uuid.New(), EventID: event.ID, UserID: f.user.ID, Status: model.RegistrationStatusConfirmed, PaymentStatus: model.PaymentStatusFree}
	locked := *reg

	stranger := &auth.Identity{ID: uuid.New(), Role: model.RoleUser, IsActive: true}
	f.registrations.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)

	_, err := f.service(true).Cancel(context.Background(), stranger, reg.ID)
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)

	f.registrations.On("FindByIDForUpdate", mock.Anything, reg.ID).Return(&locked, nil)
	f.registrations.On("Cancel", mock.Anything, reg.ID).Return(nil)
	f.events.On("ReleaseSpot", mock.Anything, event.ID).Return(nil)
	f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)

	cancelled, err := f.service(true).Cancel(context.Background(), f.user, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, testNow, *cancelled.CancelledAt)
	f.registrations.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertExpectations(t)
}

func TestRegistrationService_CancelCheckedInReleasesSpot(t *testing.T) {
	f := newRegistrationFixture()
	event := freeEvent()
	checkedIn := testNow.Add(-time.Hour)
	reg := &model.Registration{
		ID:            uuid.New(),
		EventID:       event.ID,
		UserID:        uuid.New(),
		Status:        model.RegistrationStatusCheckedIn,
		PaymentStatus: model.PaymentStatusFree,
		CheckedInAt:   &checkedIn,
	}
	admin := &auth.Identity{ID: uuid.New(), Role: model.RoleAdmin, IsActive: true}

	f.registrations.On("FindByID", mock.Anything, reg.ID).Return(reg, nil)
	f.registrations.On("FindByIDForUpdate", mock.Anything, reg.ID).Return(reg, nil)
	f.registrations.On("Cancel", mock.Anything, reg.ID).Return(nil)
	f.events.On("ReleaseSpot", mock.Anything, event.ID).Return(nil)
	f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)

	cancelled, err := f.service(true).Cancel(context.Background(), admin, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusCancelled, cancelled.Status)
	assert.Equal(t, []string{notify.RegistrationCancelled}, f.publisher.keys)
	f.events.AssertCalled(t, "ReleaseSpot", mock.Anything, event.ID)
	f.registrations.AssertExpectations(t)
}

func TestRegistrationService_CheckIn(t *testing.T) {
	f := newRegistrationFixture()
	event := freeEvent()
	reg := &model.Registration{ID: uuid.New(), EventID: event.ID, Status: model.RegistrationStatusConfirmed}
	f.registrations.On("FindByIDForUpdate", mock.Anything, reg.ID).Return(reg, nil)
	f.registrations.On("CheckIn", mock.Anything, reg.ID).Return(nil)
	f.events.On("FindByID", mock.Anything, event.ID).Return(event, nil)

	checked, err := f.service(true).CheckIn(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationStatusCheckedIn, checked.Status)
	require.NotNil(t, checked.CheckedInAt)
	f.events.AssertNotCalled(t, "ReleaseSpot", mock.Anything, mock.Anything)
	f.registrations.AssertExpectations(t)
}

func TestRegistrationService_SetStatus_RejectsInvalidTransition(t *testing.T) {
	f := newRegistrationFixture()
	reg := &model.Registration{ID: uuid.New(), EventID: uuid.New(), Status: model.RegistrationStatusPending}
	f.registrations.On("FindByIDForUpdate", mock.Anything, reg.ID).Return(reg, nil)

	_, err := f.service(true).SetStatus(context.Background(), reg.ID, model.RegistrationStatusCheckedIn)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.service(true).SetStatus(context.Background(), reg.ID, "refunded")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	f.registrations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.registrations.AssertNotCalled(t, "CheckIn", mock.Anything, mock.Anything)
}

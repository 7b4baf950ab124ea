package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bahafit/internal/auth"
	"bahafit/internal/cache"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/notify"
	"bahafit/internal/payment"
	"bahafit/internal/pricing"
	"bahafit/internal/repository"
)

// ManualPaymentMessage is returned when a paid registration cannot be sent
// to a hosted payment page.
const ManualPaymentMessage = "Your spot is reserved. The organizer will contact you with payment instructions."

// RegistrationInput is what the checkout page submits. Price and Currency
// are what the user was shown; they must still match the server's quote.
type RegistrationInput struct {
	EventID    uuid.UUID       `json:"eventId" validate:"required"`
	EventTitle string          `json:"eventTitle"`
	TicketType string          `json:"ticketType,omitempty"`
	Price      decimal.Decimal `json:"price" swaggertype:"number"`
	Currency   string          `json:"currency,omitempty"`
}

// RegistrationResult is the outcome of a checkout submission.
type RegistrationResult struct {
	Registration *model.Registration `json:"registration"`
	PaymentURL   string              `json:"paymentUrl,omitempty"`
	State        pricing.State       `json:"state"`
	Message      string              `json:"message,omitempty"`
}

// URLBuilder builds the pages a hosted checkout returns to.
type URLBuilder interface {
	PaymentSuccessURL(reg *model.Registration) string
	PaymentCancelURL(reg *model.Registration, eventSlug string) string
}

// RegistrationService runs checkout submissions and registration lifecycle changes.
type RegistrationService interface {
	Register(ctx context.Context, user *auth.Identity, in RegistrationInput) (*RegistrationResult, error)
	Cancel(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Registration, error)
	CheckIn(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus) (*model.Registration, error)
	List(ctx context.Context, eventID *uuid.UUID) ([]model.Registration, error)
	ListForUser(ctx context.Context, user *auth.Identity) ([]model.Registration, error)
	Stats(ctx context.Context, eventID *uuid.UUID) (*model.RegistrationStats, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type registrationService struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	tx            repository.Transactor
	gateway       payment.Gateway
	urls          URLBuilder
	publisher     notify.Publisher
	cache         *cache.Client
	log           *zap.Logger
	now           func() time.Time
}

// RegistrationDeps groups the collaborators of the registration service.
// Gateway may be nil when no payment provider is configured.
type RegistrationDeps struct {
	Events        repository.EventRepository
	Registrations repository.RegistrationRepository
	Tx            repository.Transactor
	Gateway       payment.Gateway
	URLs          URLBuilder
	Publisher     notify.Publisher
	Cache         *cache.Client
	Log           *zap.Logger
	Now           func() time.Time
}

// NewRegistrationService builds a RegistrationService.
func NewRegistrationService(d RegistrationDeps) RegistrationService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Publisher == nil {
		d.Publisher = notify.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &registrationService{
		events:        d.Events,
		registrations: d.Registrations,
		tx:            d.Tx,
		gateway:       d.Gateway,
		urls:          d.URLs,
		publisher:     d.Publisher,
		cache:         d.Cache,
		log:           d.Log,
		now:           d.Now,
	}
}

func (s *registrationService) publish(ctx context.Context, key string, reg *model.Registration) {
	msg := notify.NewRegistrationMessage(key, reg, s.now())
	if err := s.publisher.PublishJSON(ctx, key, msg); err != nil {
		s.log.Warn("publish registration message",
			zap.String("routing_key", key),
			zap.String("registration_id", reg.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *registrationService) invalidate(ctx context.Context, event *model.Event) {
	_ = s.cache.Delete(ctx, eventCacheKey(event.Slug))
}

// Register re-prices the submission on the server, holds a spot and creates
// the registration in one transaction, then completes free tickets or hands
// paid ones to the payment provider.
func (s *registrationService) Register(ctx context.Context, user *auth.Identity, in RegistrationInput) (*RegistrationResult, error) {
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}

	event, err := s.events.FindByID(ctx, in.EventID)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	if event.Status != model.EventStatusPublished || !event.RequiresRegistration {
		return nil, apperrors.ErrRegistrationClosed
	}

	flow := pricing.NewFlow()
	now := s.now()
	if err := flow.SelectTier(event, in.TicketType, now); err != nil {
		return nil, err
	}
	quote := flow.Quote()

	if !quote.Price.Equal(in.Price) || (in.Currency != "" && quote.Currency != "" && !strings.EqualFold(in.Currency, quote.Currency)) {
		flow.Fail()
		return nil, apperrors.ErrPriceChanged
	}
	if pricing.SoldOut(event) {
		flow.Fail()
		return nil, apperrors.ErrSoldOut
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}

	reg := &model.Registration{
		EventID:       event.ID,
		UserID:        user.ID,
		EventTitle:    event.Title,
		TicketType:    quote.TicketType,
		Price:         quote.Price,
		Currency:      quote.Currency,
		Status:        model.RegistrationStatusConfirmed,
		PaymentStatus: model.PaymentStatusFree,
	}
	if quote.RequiresPayment() {
		reg.Status = model.RegistrationStatusPending
		reg.PaymentStatus = model.PaymentStatusPending
	}

	if err := flow.Submit(); err != nil {
		return nil, err
	}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		reserved, err := repos.Events.ReserveSpot(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("reserve spot: %w", err)
		}
		if !reserved {
			return apperrors.ErrSoldOut
		}
		// The reservation holds the event row, so concurrent submissions by
		// the same user are serialized here.
		existing, err := repos.Registrations.FindActiveByUserAndEvent(ctx, user.ID, event.ID)
		if err != nil {
			return fmt.Errorf("find existing registration: %w", err)
		}
		if existing != nil {
			return apperrors.ErrAlreadyRegistered
		}
		if quote.TierIndex >= 0 {
			if tierCap := event.Pricing[quote.TierIndex].Capacity; tierCap != nil {
				counts, err := repos.Registrations.CountActiveByTier(ctx, event.ID)
				if err != nil {
					return fmt.Errorf("count tier registrations: %w", err)
				}
				if counts[quote.TicketType] >= int64(*tierCap) {
					return apperrors.ErrSoldOut
				}
			}
		}
		if err := repos.Registrations.Create(ctx, reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		return nil
	})
	if err != nil {
		flow.Fail()
		return nil, err
	}
	s.invalidate(ctx, event)

	result := &RegistrationResult{Registration: reg}
	if quote.RequiresPayment() && s.gateway != nil {
		session, err := s.startPayment(ctx, user, event, reg)
		if err != nil {
			s.log.Error("start payment", zap.String("registration_id", reg.ID.String()), zap.Error(err))
			s.release(ctx, reg, model.PaymentStatusFailed)
			return nil, err
		}
		result.PaymentURL = session.URL
	}

	result.State, err = flow.Finish(result.PaymentURL)
	if err != nil {
		return nil, err
	}
	if result.State == pricing.StatePaymentInstructionsPending {
		result.Message = ManualPaymentMessage
	}

	s.log.Info("registration created",
		zap.String("registration_id", reg.ID.String()),
		zap.String("event_id", event.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("ticket_type", reg.TicketType),
		zap.String("price", reg.Price.StringFixed(2)),
		zap.String("state", string(result.State)),
	)
	s.publish(ctx, notify.RegistrationCreated, reg)
	if reg.Status == model.RegistrationStatusConfirmed {
		s.publish(ctx, notify.RegistrationConfirmed, reg)
	}
	return result, nil
}

func (s *registrationService) startPayment(ctx context.Context, user *auth.Identity, event *model.Event, reg *model.Registration) (*payment.CheckoutSession, error) {
	req := payment.CheckoutRequest{
		RegistrationID: reg.ID,
		EventTitle:     event.Title,
		TicketType:     reg.TicketType,
		Amount:         reg.Price,
		Currency:       reg.Currency,
		CustomerEmail:  user.Email,
	}
	if s.urls != nil {
		req.SuccessURL = s.urls.PaymentSuccessURL(reg)
		req.CancelURL = s.urls.PaymentCancelURL(reg, event.Slug)
	}
	session, err := s.gateway.CreateCheckout(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	reg.PaymentReference = session.ID
	if err := s.registrations.Update(ctx, reg.ID, map[string]interface{}{"payment_reference": session.ID}); err != nil {
		return nil, fmt.Errorf("store payment reference: %w", err)
	}
	return session, nil
}

// release cancels a registration and gives its spot back. Used to undo a
// registration whose payment could not start or did not complete.
func (s *registrationService) release(ctx context.Context, reg *model.Registration, paymentStatus model.PaymentStatus) {
	_, err := s.transition(ctx, reg.ID, model.RegistrationStatusCancelled, map[string]interface{}{
		"payment_status": paymentStatus,
	})
	if err != nil {
		s.log.Error("release registration", zap.String("registration_id", reg.ID.String()), zap.Error(err))
	}
}

// transition moves a registration to next under a row lock. Leaving a
// spot-holding status releases the event spot in the same transaction.
func (s *registrationService) transition(ctx context.Context, id uuid.UUID, next model.RegistrationStatus, extra map[string]interface{}) (*model.Registration, error) {
	var updated *model.Registration
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		reg, err := repos.Registrations.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("find registration: %w", err)
		}
		if reg == nil {
			return apperrors.ErrRegistrationNotFound
		}
		if !reg.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", apperrors.ErrInvalidTransition, reg.Status, next)
		}

		now := s.now()
		switch next {
		case model.RegistrationStatusCheckedIn:
			err = repos.Registrations.CheckIn(ctx, id)
			reg.CheckedInAt = &now
		case model.RegistrationStatusCancelled:
			err = repos.Registrations.Cancel(ctx, id)
			reg.CancelledAt = &now
		default:
			err = repos.Registrations.UpdateStatus(ctx, id, next)
		}
		if err != nil {
			return fmt.Errorf("update registration status: %w", err)
		}
		if len(extra) > 0 {
			if err := repos.Registrations.Update(ctx, id, extra); err != nil {
				return fmt.Errorf("update registration: %w", err)
			}
		}
		if reg.Status.HoldsSpot() && !next.HoldsSpot() {
			if err := repos.Events.ReleaseSpot(ctx, reg.EventID); err != nil {
				return fmt.Errorf("release spot: %w", err)
			}
		}

		reg.Status = next
		if ps, ok := extra["payment_status"].(model.PaymentStatus); ok {
			reg.PaymentStatus = ps
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateEvent(ctx, s.cache, s.events, updated.EventID)
	switch next {
	case model.RegistrationStatusConfirmed:
		s.publish(ctx, notify.RegistrationConfirmed, updated)
	case model.RegistrationStatusCancelled:
		s.publish(ctx, notify.RegistrationCancelled, updated)
	case model.RegistrationStatusCheckedIn:
		s.publish(ctx, notify.RegistrationCheckedIn, updated)
	}
	return updated, nil
}

// Cancel cancels a registration for its owner or an admin. Registrations of
// other users are reported as not found.
func (s *registrationService) Cancel(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*model.Registration, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	reg, err := s.registrations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if reg == nil || (actor.Role != model.RoleAdmin && reg.UserID != actor.ID) {
		return nil, apperrors.ErrRegistrationNotFound
	}
	return s.transition(ctx, id, model.RegistrationStatusCancelled, nil)
}

func (s *registrationService) CheckIn(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return s.transition(ctx, id, model.RegistrationStatusCheckedIn, nil)
}

// SetStatus applies an admin status change, honoring the allowed transitions.
func (s *registrationService) SetStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus) (*model.Registration, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidationFailed, status)
	}
	return s.transition(ctx, id, status, nil)
}

func (s *registrationService) List(ctx context.Context, eventID *uuid.UUID) ([]model.Registration, error) {
	if eventID != nil {
		return s.registrations.ListByEvent(ctx, *eventID)
	}
	return s.registrations.ListAll(ctx)
}

func (s *registrationService) ListForUser(ctx context.Context, user *auth.Identity) ([]model.Registration, error) {
	return s.registrations.ListByUser(ctx, user.ID)
}

func (s *registrationService) Stats(ctx context.Context, eventID *uuid.UUID) (*model.RegistrationStats, error) {
	return s.registrations.Stats(ctx, eventID)
}

// HandleWebhook applies a verified payment notification. Completed
// payments confirm the registration; expired ones cancel it and release the
// spot. Replays of an already applied notification are no-ops.
func (s *registrationService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return apperrors.ErrProviderNotConfigured
	}
	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		return err
	}
	if evt.Kind == payment.WebhookIgnored {
		s.log.Debug("webhook ignored", zap.String("event_id", evt.ID))
		return nil
	}

	reg, err := s.registrations.FindByPaymentReference(ctx, evt.SessionID)
	if err != nil {
		return fmt.Errorf("find registration: %w", err)
	}
	if reg == nil && evt.RegistrationID != "" {
		if id, parseErr := uuid.Parse(evt.RegistrationID); parseErr == nil {
			if reg, err = s.registrations.FindByID(ctx, id); err != nil {
				return fmt.Errorf("find registration: %w", err)
			}
		}
	}
	if reg == nil {
		s.log.Warn("webhook for unknown registration", zap.String("event_id", evt.ID), zap.String("session_id", evt.SessionID))
		return nil
	}

	logFields := []zap.Field{
		zap.String("event_id", evt.ID),
		zap.String("registration_id", reg.ID.String()),
		zap.String("kind", string(evt.Kind)),
	}
	switch evt.Kind {
	case payment.WebhookPaymentCompleted:
		_, err = s.transition(ctx, reg.ID, model.RegistrationStatusConfirmed, map[string]interface{}{
			"payment_status": model.PaymentStatusPaid,
		})
	case payment.WebhookPaymentExpired:
		_, err = s.transition(ctx, reg.ID, model.RegistrationStatusCancelled, map[string]interface{}{
			"payment_status": model.PaymentStatusFailed,
		})
	}
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		s.log.Info("webhook already applied", logFields...)
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("webhook applied", logFields...)
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bahafit/internal/auth"
	"bahafit/internal/cache"
	"bahafit/internal/cms"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/pricing"
	"bahafit/internal/repository"
)

const (
	eventCacheTTL     = time.Minute
	relatedEventLimit = 3
	defaultEventLimit = 50
)

func eventCacheKey(slug string) string {
	return "event:slug:" + slug
}

// invalidateEvent drops the cached detail of the event with id.
func invalidateEvent(ctx context.Context, c *cache.Client, events repository.EventRepository, id uuid.UUID) {
	event, err := events.FindByID(ctx, id)
	if err != nil || event == nil {
		return
	}
	_ = c.Delete(ctx, eventCacheKey(event.Slug))
}

// EventQuery filters the public catalog.
type EventQuery struct {
	EventType string
	Search    string
	Featured  *bool
	Upcoming  bool
	Limit     int
}

// EventList is the catalog page payload.
type EventList struct {
	Events          []model.Event    `json:"events"`
	EventTypeCounts map[string]int64 `json:"eventTypeCounts"`
}

// EventDetail is an event with its related events.
type EventDetail struct {
	Event         *model.Event  `json:"event"`
	RelatedEvents []model.Event `json:"relatedEvents"`
}

// CreateEventInput is the event creation form payload.
type CreateEventInput struct {
	Title                string              `json:"title" validate:"required,max=200"`
	EventType            string              `json:"eventType" validate:"required"`
	Description          json.RawMessage     `json:"description,omitempty" swaggertype:"object"`
	StartDate            time.Time           `json:"startDate" validate:"required"`
	EndDate              *time.Time          `json:"endDate,omitempty"`
	IsVirtual            bool                `json:"isVirtual"`
	VirtualLink          string              `json:"virtualLink,omitempty" validate:"omitempty,url"`
	Location             *model.Location     `json:"location,omitempty"`
	Capacity             *int                `json:"capacity,omitempty" validate:"omitempty,min=0"`
	RequiresRegistration *bool               `json:"requiresRegistration,omitempty"`
	IsFree               bool                `json:"isFree"`
	Price                *decimal.Decimal    `json:"price,omitempty" swaggertype:"number"`
	Currency             string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	Pricing              []model.PricingTier `json:"pricing,omitempty" validate:"dive"`
	EarlyBirdDeadline    *time.Time          `json:"earlyBirdDeadline,omitempty"`
	ContactInfo          *model.ContactInfo  `json:"contactInfo,omitempty"`
	Publish              bool                `json:"publish"`
}

// EventService serves the public catalog and user-submitted events.
type EventService interface {
	List(ctx context.Context, q EventQuery) (*EventList, error)
	GetBySlug(ctx context.Context, slug string) (*EventDetail, error)
	Checkout(ctx context.Context, slug string) (*pricing.CheckoutView, error)
	CreateUserEvent(ctx context.Context, owner *auth.Identity, in CreateEventInput) (*model.Event, error)
	UpdateUserEvent(ctx context.Context, owner *auth.Identity, id uuid.UUID, patch map[string]json.RawMessage) (*model.Event, error)
	ListHosted(ctx context.Context, owner *auth.Identity) ([]model.Event, error)
}

type eventService struct {
	events        repository.EventRepository
	userEvents    repository.UserEventRepository
	registrations repository.RegistrationRepository
	cache         *cache.Client
	log           *zap.Logger
	now           func() time.Time
}

// NewEventService builds an EventService. now defaults to time.Now.
func NewEventService(
	events repository.EventRepository,
	userEvents repository.UserEventRepository,
	registrations repository.RegistrationRepository,
	cache *cache.Client,
	log *zap.Logger,
	now func() time.Time,
) EventService {
	if now == nil {
		now = time.Now
	}
	return &eventService{
		events:        events,
		userEvents:    userEvents,
		registrations: registrations,
		cache:         cache,
		log:           log,
		now:           now,
	}
}

func (s *eventService) List(ctx context.Context, q EventQuery) (*EventList, error) {
	filter := repository.EventFilter{
		Statuses:  []model.EventStatus{model.EventStatusPublished},
		EventType: q.EventType,
		Search:    q.Search,
		Featured:  q.Featured,
		Limit:     q.Limit,
	}
	if filter.Limit <= 0 || filter.Limit > defaultEventLimit {
		filter.Limit = defaultEventLimit
	}
	if q.Upcoming {
		now := s.now()
		filter.UpcomingAt = &now
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	counts, err := s.events.CountByType(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	return &EventList{Events: events, EventTypeCounts: counts}, nil
}

// GetBySlug returns a published event and up to three upcoming events of
// the same type. Results are cached per slug.
func (s *eventService) GetBySlug(ctx context.Context, slug string) (*EventDetail, error) {
	var cached EventDetail
	if s.cache.GetJSON(ctx, eventCacheKey(slug), &cached) {
		return &cached, nil
	}

	event, err := s.events.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if event == nil || event.Status != model.EventStatusPublished {
		return nil, apperrors.ErrEventNotFound
	}
	related, err := s.events.Related(ctx, event, s.now(), relatedEventLimit)
	if err != nil {
		return nil, fmt.Errorf("related events: %w", err)
	}

	detail := &EventDetail{Event: event, RelatedEvents: related}
	_ = s.cache.SetJSON(ctx, eventCacheKey(slug), detail, eventCacheTTL)
	return detail, nil
}

// Checkout prices every ticket option of a published event.
func (s *eventService) Checkout(ctx context.Context, slug string) (*pricing.CheckoutView, error) {
	event, err := s.events.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if event == nil || event.Status != model.EventStatusPublished {
		return nil, apperrors.ErrEventNotFound
	}

	var tierCounts map[string]int64
	if len(event.Pricing) > 0 {
		tierCounts, err = s.registrations.CountActiveByTier(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("count tier registrations: %w", err)
		}
	}
	view := pricing.BuildView(event, tierCounts, s.now())
	return &view, nil
}

func validTiers(tiers []model.PricingTier) error {
	seen := map[string]bool{}
	for i, t := range tiers {
		name := strings.TrimSpace(t.TierName)
		if name == "" {
			return fmt.Errorf("%w: ticket option %d needs a name", apperrors.ErrValidationFailed, i+1)
		}
		if seen[name] {
			return fmt.Errorf("%w: ticket option %q is listed twice", apperrors.ErrValidationFailed, name)
		}
		seen[name] = true
		if t.Price.IsNegative() {
			return fmt.Errorf("%w: ticket option %q has a negative price", apperrors.ErrValidationFailed, name)
		}
		if t.EarlyBirdPrice != nil && (t.EarlyBirdPrice.IsNegative() || t.EarlyBirdPrice.GreaterThan(t.Price)) {
			return fmt.Errorf("%w: early-bird price of %q must be between 0 and the tier price", apperrors.ErrValidationFailed, name)
		}
		if t.Capacity != nil && *t.Capacity < 0 {
			return fmt.Errorf("%w: ticket option %q has a negative capacity", apperrors.ErrValidationFailed, name)
		}
		if len(t.Currency) != 3 {
			return fmt.Errorf("%w: ticket option %q needs a 3-letter currency", apperrors.ErrValidationFailed, name)
		}
	}
	return nil
}

func (in *CreateEventInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrValidationFailed)
	}
	if !cms.ValidEventType(in.EventType) {
		return fmt.Errorf("%w: unknown event type %q", apperrors.ErrValidationFailed, in.EventType)
	}
	if in.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", apperrors.ErrValidationFailed)
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("%w: end date is before the start date", apperrors.ErrValidationFailed)
	}
	if in.IsVirtual && in.VirtualLink == "" {
		return fmt.Errorf("%w: virtual events need a link", apperrors.ErrValidationFailed)
	}
	if !in.IsVirtual && in.Location == nil {
		return fmt.Errorf("%w: a location or a virtual link is required", apperrors.ErrValidationFailed)
	}
	if in.Capacity != nil && *in.Capacity < 0 {
		return fmt.Errorf("%w: capacity cannot be negative", apperrors.ErrValidationFailed)
	}
	if in.Price != nil && in.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", apperrors.ErrValidationFailed)
	}
	if !in.IsFree && len(in.Pricing) == 0 && in.Price == nil {
		return fmt.Errorf("%w: paid events need at least one ticket option", apperrors.ErrValidationFailed)
	}
	return validTiers(in.Pricing)
}

// CreateUserEvent stores an event submitted by owner, published immediately
// when the form asks for it and as a draft otherwise.
func (s *eventService) CreateUserEvent(ctx context.Context, owner *auth.Identity, in CreateEventInput) (*model.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	status := model.EventStatusDraft
	if in.Publish {
		status = model.EventStatusPublished
	}
	ownerID := owner.ID
	event := &model.Event{
		Title:                strings.TrimSpace(in.Title),
		EventType:            in.EventType,
		Description:          in.Description,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		IsVirtual:            in.IsVirtual,
		VirtualLink:          in.VirtualLink,
		Location:             in.Location,
		Capacity:             in.Capacity,
		RequiresRegistration: true,
		IsFree:               in.IsFree,
		Price:                in.Price,
		Currency:             strings.ToUpper(in.Currency),
		Pricing:              in.Pricing,
		EarlyBirdDeadline:    in.EarlyBirdDeadline,
		Status:               status,
		ContactInfo:          in.ContactInfo,
		OwnerID:              &ownerID,
	}
	if in.RequiresRegistration != nil {
		event.RequiresRegistration = *in.RequiresRegistration
	}

	if err := s.userEvents.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("user event created",
		zap.String("event_id", event.ID.String()),
		zap.String("slug", event.Slug),
		zap.String("owner_id", ownerID.String()),
		zap.String("status", string(status)),
	)
	return event, nil
}

type patchField struct {
	column string
	decode func(raw json.RawMessage) (any, error)
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeStatus(raw json.RawMessage) (any, error) {
	var st model.EventStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	switch st {
	case model.EventStatusDraft, model.EventStatusPublished, model.EventStatusCancelled, model.EventStatusPostponed:
		return st, nil
	}
	return nil, fmt.Errorf("status %q cannot be set by the organizer", st)
}

func decodeEventType(raw json.RawMessage) (any, error) {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if !cms.ValidEventType(v) {
		return nil, fmt.Errorf("unknown event type %q", v)
	}
	return v, nil
}

func decodeTiers(raw json.RawMessage) (any, error) {
	var tiers []model.PricingTier
	if err := json.Unmarshal(raw, &tiers); err != nil {
		return nil, err
	}
	if err := validTiers(tiers); err != nil {
		return nil, err
	}
	if tiers == nil {
		tiers = []model.PricingTier{}
	}
	return tiers, nil
}

// ownerPatchFields maps editable form keys to columns.
var ownerPatchFields = map[string]patchField{
	"title":                {"title", decodeAs[string]},
	"eventType":            {"event_type", decodeEventType},
	"description":          {"description", decodeAs[json.RawMessage]},
	"startDate":            {"start_date", decodeAs[time.Time]},
	"endDate":              {"end_date", decodeAs[*time.Time]},
	"isVirtual":            {"is_virtual", decodeAs[bool]},
	"virtualLink":          {"virtual_link", decodeAs[string]},
	"location":             {"location", decodeAs[*model.Location]},
	"capacity":             {"capacity", decodeAs[*int]},
	"requiresRegistration": {"requires_registration", decodeAs[bool]},
	"isFree":               {"is_free", decodeAs[bool]},
	"price":                {"price", decodeAs[*decimal.Decimal]},
	"currency":             {"currency", decodeAs[string]},
	"pricing":              {"pricing", decodeTiers},
	"earlyBirdDeadline":    {"early_bird_deadline", decodeAs[*time.Time]},
	"status":               {"status", decodeStatus},
	"contactInfo":          {"contact_info", decodeAs[*model.ContactInfo]},
}

// immutablePatchKeys are rejected outright rather than ignored.
var immutablePatchKeys = map[string]string{
	"id":                   "id",
	"_id":                  "_id",
	"slug":                 "slug",
	"ownerId":              "owner_id",
	"origin":               "origin",
	"currentRegistrations": "current_registrations",
	"featured":             "featured",
}

// UpdateUserEvent applies an owner's partial edit. Events owned by someone
// else are reported as not found.
func (s *eventService) UpdateUserEvent(ctx context.Context, owner *auth.Identity, id uuid.UUID, patch map[string]json.RawMessage) (*model.Event, error) {
	updates := make(map[string]interface{}, len(patch))
	for key, raw := range patch {
		if column, ok := immutablePatchKeys[key]; ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrImmutableField, column)
		}
		field, ok := ownerPatchFields[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", apperrors.ErrValidationFailed, key)
		}
		value, err := field.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrValidationFailed, key, err)
		}
		updates[field.column] = value
	}
	if v, ok := updates["capacity"].(*int); ok && v != nil && *v < 0 {
		return nil, fmt.Errorf("%w: capacity cannot be negative", apperrors.ErrValidationFailed)
	}

	current, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if current == nil || current.OwnerID == nil || *current.OwnerID != owner.ID {
		return nil, apperrors.ErrEventNotFound
	}
	if err := s.checkOwnerPatch(ctx, current, updates); err != nil {
		return nil, err
	}

	ok, err := s.userEvents.UpdateByID(ctx, id, owner.ID, updates)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}

	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	_ = s.cache.Delete(ctx, eventCacheKey(event.Slug))
	return event, nil
}

// checkOwnerPatch keeps an organizer's edit within what moderation and
// existing registrations allow.
func (s *eventService) checkOwnerPatch(ctx context.Context, current *model.Event, updates map[string]interface{}) error {
	if next, ok := updates["status"].(model.EventStatus); ok && !current.Status.OwnerCanMoveTo(next) {
		return fmt.Errorf("%w: status cannot change from %s to %s", apperrors.ErrValidationFailed, current.Status, next)
	}
	if capacity, ok := updates["capacity"].(*int); ok && capacity != nil && *capacity < current.CurrentRegistrations {
		return fmt.Errorf("%w: capacity %d is below the %d registrations already taken",
			apperrors.ErrValidationFailed, *capacity, current.CurrentRegistrations)
	}

	tiers, ok := updates["pricing"].([]model.PricingTier)
	if !ok {
		return nil
	}
	limited := false
	for _, t := range tiers {
		if t.Capacity != nil {
			limited = true
			break
		}
	}
	if !limited {
		return nil
	}
	counts, err := s.registrations.CountActiveByTier(ctx, current.ID)
	if err != nil {
		return fmt.Errorf("count tier registrations: %w", err)
	}
	for _, t := range tiers {
		if t.Capacity != nil && counts[t.TierName] > int64(*t.Capacity) {
			return fmt.Errorf("%w: ticket option %q already has %d registrations",
				apperrors.ErrValidationFailed, t.TierName, counts[t.TierName])
		}
	}
	return nil
}

func (s *eventService) ListHosted(ctx context.Context, owner *auth.Identity) ([]model.Event, error) {
	return s.userEvents.ListByOwner(ctx, owner.ID)
}

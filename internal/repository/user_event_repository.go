package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
)

// immutableEventFields may not appear in an owner's patch.
var immutableEventFields = map[string]bool{
	"id":                    true,
	"_id":                   true,
	"slug":                  true,
	"owner_id":              true,
	"origin":                true,
	"current_registrations": true,
	"featured":              true,
}

// jsonEventColumns are stored through the JSON serializer, which map updates bypass.
var jsonEventColumns = map[string]bool{
	"description":  true,
	"location":     true,
	"contact_info": true,
	"pricing":      true,
}

// UserEventRepository persists events submitted by ordinary users.
type UserEventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	UpdateByID(ctx context.Context, id, userID uuid.UUID, patch map[string]interface{}) (bool, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Event, error)
}

type userEventRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserEventRepository creates a user event repository. now defaults to time.Now.
func NewUserEventRepository(db *gorm.DB, now func() time.Time) UserEventRepository {
	if now == nil {
		now = time.Now
	}
	return &userEventRepository{db: db, now: now}
}

// GenerateSlug builds a slug from the title and a base36 millisecond
// timestamp, unique without a lookup.
func GenerateSlug(title string, at time.Time) string {
	suffix := strconv.FormatInt(at.UnixMilli(), 36)
	base := slug.Make(title)
	if base == "" {
		return "event-" + suffix
	}
	return base + "-" + suffix
}

// Create assigns the slug and the user origin, then stores the event.
func (r *userEventRepository) Create(ctx context.Context, event *model.Event) error {
	event.Slug = GenerateSlug(event.Title, r.now())
	event.Origin = model.EventOriginUser
	event.CurrentRegistrations = 0
	if event.Pricing == nil {
		event.Pricing = []model.PricingTier{}
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// UpdateByID applies patch to the event only when it is owned by userID. It
// reports false when no such event exists for that owner.
func (r *userEventRepository) UpdateByID(ctx context.Context, id, userID uuid.UUID, patch map[string]interface{}) (bool, error) {
	for key := range patch {
		if immutableEventFields[key] {
			return false, fmt.Errorf("%w: %s", apperrors.ErrImmutableField, key)
		}
	}
	if len(patch) == 0 {
		var count int64
		err := r.db.WithContext(ctx).Model(&model.Event{}).
			Where("id = ? AND owner_id = ?", id, userID).Count(&count).Error
		return count == 1, err
	}

	updates := make(map[string]interface{}, len(patch))
	for key, value := range patch {
		if jsonEventColumns[key] {
			encoded, err := json.Marshal(value)
			if err != nil {
				return false, fmt.Errorf("encode %s: %w", key, err)
			}
			value = string(encoded)
		}
		updates[key] = value
	}

	q := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND owner_id = ?", id, userID)
	guarded := false
	// Capacity may not drop below the spots already taken; the condition is
	// checked by the UPDATE itself so it cannot race a reservation.
	if capacity, ok := patch["capacity"].(*int); ok && capacity != nil {
		q = q.Where("current_registrations <= ?", *capacity)
		guarded = true
	}
	if status, ok := patch["status"].(model.EventStatus); ok {
		q = q.Where("status IN ?", model.OwnerSourcesFor(status))
		guarded = true
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if !guarded {
		return false, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND owner_id = ?", id, userID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	return false, fmt.Errorf("%w: event changed since it was read; capacity or status no longer allowed", apperrors.ErrValidationFailed)
}

// ListByOwner returns the events a user submitted, newest first.
func (r *userEventRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Event, error) {
	events := []model.Event{}
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bahafit/internal/model"
)

// EventFilter narrows event listings. Zero values disable a criterion.
type EventFilter struct {
	Statuses    []model.EventStatus
	EventType   string
	Search      string
	Featured    *bool
	UpcomingAt  *time.Time // only events starting at or after this instant
	Origin      model.EventOrigin
	Limit       int
	NewestFirst bool
}

func (f EventFilter) apply(q *gorm.DB, withType bool) *gorm.DB {
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if withType && f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}
	if f.UpcomingAt != nil {
		q = q.Where("start_date >= ?", *f.UpcomingAt)
	}
	if f.Origin != "" {
		q = q.Where("origin = ?", f.Origin)
	}
	return q
}

// EventPatch carries the moderation fields an admin may change.
type EventPatch struct {
	Status   *model.EventStatus
	Featured *bool
}

// EventRepository defines event catalog persistence. Lookups return nil, nil
// when no event matches. current_registrations is changed only through
// ReserveSpot and ReleaseSpot.
type EventRepository interface {
	List(ctx context.Context, f EventFilter) ([]model.Event, error)
	CountByType(ctx context.Context, f EventFilter) (map[string]int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	FindBySlug(ctx context.Context, slug string) (*model.Event, error)
	Related(ctx context.Context, event *model.Event, now time.Time, limit int) ([]model.Event, error)
	Patch(ctx context.Context, id uuid.UUID, patch EventPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpsertBySlug(ctx context.Context, event *model.Event) (created bool, err error)
	ReserveSpot(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseSpot(ctx context.Context, id uuid.UUID) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// List returns events matching f, soonest first unless NewestFirst is set.
func (r *eventRepository) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	q := f.apply(r.db.WithContext(ctx).Model(&model.Event{}), true)
	if f.NewestFirst {
		q = q.Order("created_at DESC")
	} else {
		q = q.Order("start_date ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	events := []model.Event{}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountByType counts events matching f per event type; the type criterion itself is ignored.
func (r *eventRepository) CountByType(ctx context.Context, f EventFilter) (map[string]int64, error) {
	var rows []struct {
		EventType string
		Count     int64
	}
	q := f.apply(r.db.WithContext(ctx).Model(&model.Event{}), false)
	if err := q.Select("event_type, COUNT(*) AS count").Group("event_type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}

// FindByID finds an event by ID.
func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &event, nil
}

// FindBySlug finds an event by slug.
func (r *eventRepository) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&event).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &event, nil
}

// Related returns upcoming published events of the same type, excluding event itself.
func (r *eventRepository) Related(ctx context.Context, event *model.Event, now time.Time, limit int) ([]model.Event, error) {
	related := []model.Event{}
	err := r.db.WithContext(ctx).
		Where("event_type = ? AND id <> ? AND status = ? AND start_date >= ?",
			event.EventType, event.ID, model.EventStatusPublished, now).
		Order("start_date ASC").
		Limit(limit).
		Find(&related).Error
	if err != nil {
		return nil, err
	}
	return related, nil
}

// Patch applies moderation changes.
func (r *eventRepository) Patch(ctx context.Context, id uuid.UUID, patch EventPatch) error {
	updates := map[string]interface{}{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Featured != nil {
		updates["featured"] = *patch.Featured
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).Updates(updates).Error
}

// Delete removes an event.
func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Event{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertBySlug creates the event or overwrites the stored one with the same
// slug. The registration counter of an existing event is kept.
func (r *eventRepository) UpsertBySlug(ctx context.Context, event *model.Event) (bool, error) {
	var existing model.Event
	err := r.db.WithContext(ctx).Where("slug = ?", event.Slug).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.db.WithContext(ctx).Create(event).Error
	}
	if err != nil {
		return false, err
	}

	event.ID = existing.ID
	event.CreatedAt = existing.CreatedAt
	event.CurrentRegistrations = existing.CurrentRegistrations
	return false, r.db.WithContext(ctx).Omit("current_registrations").Save(event).Error
}

// ReserveSpot increments the registration counter only while the event has
// capacity left. It reports false when the event is full or missing.
func (r *eventRepository) ReserveSpot(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND (capacity IS NULL OR current_registrations < capacity)", id).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseSpot decrements the registration counter, never below zero.
func (r *eventRepository) ReleaseSpot(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND current_registrations > 0", id).
		UpdateColumn("current_registrations", gorm.Expr("current_registrations - 1")).Error
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
)

// RegistrationRepository defines registration persistence. Lookups return
// nil, nil when no registration matches.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *model.Registration) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	FindByPaymentReference(ctx context.Context, ref string) (*model.Registration, error)
	FindActiveByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Registration, error)
	ListAll(ctx context.Context) ([]model.Registration, error)
	CountActiveByTier(ctx context.Context, eventID uuid.UUID) (map[string]int64, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus) error
	CheckIn(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, eventID *uuid.UUID) (*model.RegistrationStats, error)
}

type registrationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRegistrationRepository creates a registration repository. now defaults to time.Now.
func NewRegistrationRepository(db *gorm.DB, now func() time.Time) RegistrationRepository {
	if now == nil {
		now = time.Now
	}
	return &registrationRepository{db: db, now: now}
}

// Create stamps RegisteredAt and stores the registration. Status and
// PaymentStatus are stored as given.
func (r *registrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	reg.RegisteredAt = r.now()
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *registrationRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Registration, error) {
	var reg model.Registration
	if err := r.db.WithContext(ctx).Where(query, args...).First(&reg).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &reg, nil
}

func (r *registrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByIDForUpdate locks the registration row until the surrounding
// transaction ends. Drivers without row locks ignore the clause.
func (r *registrationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	var reg model.Registration
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &reg, nil
}

func (r *registrationRepository) FindByPaymentReference(ctx context.Context, ref string) (*model.Registration, error) {
	return r.first(ctx, "payment_reference = ?", ref)
}

func (r *registrationRepository) FindActiveByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*model.Registration, error) {
	return r.first(ctx, "user_id = ? AND event_id = ? AND status <> ?", userID, eventID, model.RegistrationStatusCancelled)
}

func (r *registrationRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Registration, error) {
	regs := []model.Registration{}
	q := r.db.WithContext(ctx)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Order("registered_at DESC").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Registration, error) {
	return r.list(ctx, "event_id = ?", eventID)
}

func (r *registrationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Registration, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *registrationRepository) ListAll(ctx context.Context) ([]model.Registration, error) {
	return r.list(ctx, "")
}

// CountActiveByTier counts registrations holding a spot per ticket type.
func (r *registrationRepository) CountActiveByTier(ctx context.Context, eventID uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		TicketType string
		Count      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Registration{}).
		Select("ticket_type, COUNT(*) AS count").
		Where("event_id = ? AND status <> ?", eventID, model.RegistrationStatusCancelled).
		Group("ticket_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.TicketType] = row.Count
	}
	return counts, nil
}

// Update applies a partial update. Identifiers cannot be changed.
func (r *registrationRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	for _, key := range []string{"id", "_id", "ID"} {
		if _, ok := fields[key]; ok {
			return fmt.Errorf("%w: %s", apperrors.ErrImmutableField, key)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Registration{}).Where("id = ?", id).Updates(fields).Error
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus) error {
	return r.Update(ctx, id, map[string]interface{}{"status": status})
}

func (r *registrationRepository) CheckIn(ctx context.Context, id uuid.UUID) error {
	return r.Update(ctx, id, map[string]interface{}{
		"status":        model.RegistrationStatusCheckedIn,
		"checked_in_at": r.now(),
	})
}

func (r *registrationRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	return r.Update(ctx, id, map[string]interface{}{
		"status":       model.RegistrationStatusCancelled,
		"cancelled_at": r.now(),
	})
}

// Stats counts registrations by status and by payment status, for one event
// when eventID is set or across all events otherwise.
func (r *registrationRepository) Stats(ctx context.Context, eventID *uuid.UUID) (*model.RegistrationStats, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Registration{})
		if eventID != nil {
			q = q.Where("event_id = ?", *eventID)
		}
		return q
	}

	stats := &model.RegistrationStats{
		ByStatus:        map[model.RegistrationStatus]int64{},
		ByPaymentStatus: map[model.PaymentStatus]int64{},
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := scoped().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[model.RegistrationStatus(row.Status)] = row.Count
		stats.Total += row.Count
	}

	var byPayment []struct {
		PaymentStatus string
		Count         int64
	}
	if err := scoped().Select("payment_status, COUNT(*) AS count").Group("payment_status").Scan(&byPayment).Error; err != nil {
		return nil, fmt.Errorf("count by payment status: %w", err)
	}
	for _, row := range byPayment {
		stats.ByPaymentStatus[model.PaymentStatus(row.PaymentStatus)] = row.Count
	}
	return stats, nil
}

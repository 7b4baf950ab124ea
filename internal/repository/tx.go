package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// TxRepos are the repositories bound to one transaction: the registration
// row and its event's counter change together.
type TxRepos struct {
	Events        EventRepository
	Registrations RegistrationRepository
}

// Transactor runs work inside a database transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

type transactor struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTransactor creates a GORM-backed transactor. now defaults to time.Now.
func NewTransactor(db *gorm.DB, now func() time.Time) Transactor {
	if now == nil {
		now = time.Now
	}
	return &transactor{db: db, now: now}
}

// WithTransaction executes fn within a database transaction; returning an
// error rolls everything back.
func (t *transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, TxRepos{
			Events:        &eventRepository{db: tx},
			Registrations: &registrationRepository{db: tx, now: t.now},
		})
	})
}

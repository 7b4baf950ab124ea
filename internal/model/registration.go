package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegistrationStatus represents the attendance state of a registration.
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
	RegistrationStatusCheckedIn RegistrationStatus = "checked_in"
)

var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationStatusPending:   {RegistrationStatusConfirmed, RegistrationStatusCancelled},
	RegistrationStatusConfirmed: {RegistrationStatusCheckedIn, RegistrationStatusCancelled},
	RegistrationStatusCheckedIn: {RegistrationStatusCancelled},
}

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed, RegistrationStatusCancelled, RegistrationStatusCheckedIn:
		return true
	}
	return false
}

// CanTransitionTo reports whether a registration may move from s to next.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	for _, allowed := range registrationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HoldsSpot reports whether a registration in this status counts against capacity.
func (s RegistrationStatus) HoldsSpot() bool {
	return s != RegistrationStatusCancelled
}

// Registration is a user's ticket for an event. Price and Currency are the
// values resolved at submission and are never recomputed.
type Registration struct {
	ID               uuid.UUID          `json:"id" gorm:"type:char(36);primaryKey"`
	EventID          uuid.UUID          `json:"eventId" gorm:"type:char(36);not null;index"`
	UserID           uuid.UUID          `json:"userId" gorm:"type:char(36);not null;index"`
	EventTitle       string             `json:"eventTitle" gorm:"size:255"`
	TicketType       string             `json:"ticketType,omitempty" gorm:"size:128;index"`
	Price            decimal.Decimal    `json:"price" gorm:"type:decimal(10,2);not null"`
	Currency         string             `json:"currency" gorm:"size:3"`
	Status           RegistrationStatus `json:"status" gorm:"size:20;not null;index"`
	PaymentStatus    PaymentStatus      `json:"paymentStatus" gorm:"size:20;not null;index"`
	PaymentReference string             `json:"-" gorm:"size:255;index"`
	RegisteredAt     time.Time          `json:"registeredAt"`
	CheckedInAt      *time.Time         `json:"checkedInAt,omitempty"`
	CancelledAt      *time.Time         `json:"cancelledAt,omitempty"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RegistrationStats aggregates registrations for dashboards.
type RegistrationStats struct {
	Total           int64                        `json:"total"`
	ByStatus        map[RegistrationStatus]int64 `json:"byStatus"`
	ByPaymentStatus map[PaymentStatus]int64      `json:"byPaymentStatus"`
}

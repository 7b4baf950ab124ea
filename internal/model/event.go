package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Prices travel to the pages as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// EventStatus is the publication state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPending   EventStatus = "pending"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusPostponed EventStatus = "postponed"
	EventStatusCompleted EventStatus = "completed"
	EventStatusArchived  EventStatus = "archived"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPending, EventStatusPublished, EventStatusCancelled,
		EventStatusPostponed, EventStatusCompleted, EventStatusArchived:
		return true
	}
	return false
}

// ownerStatusTransitions are the status changes an organizer may make on
// their own event. Publishing is only allowed from a draft; events an admin
// cancelled, completed or archived are out of the organizer's hands.
var ownerStatusTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:     {EventStatusPublished, EventStatusCancelled},
	EventStatusPending:   {EventStatusDraft, EventStatusCancelled},
	EventStatusPublished: {EventStatusDraft, EventStatusPostponed, EventStatusCancelled},
	EventStatusPostponed: {EventStatusDraft, EventStatusCancelled},
}

// OwnerCanMoveTo reports whether an organizer may change s to next.
// Keeping the current status is always allowed except on locked events.
func (s EventStatus) OwnerCanMoveTo(next EventStatus) bool {
	allowed, ok := ownerStatusTransitions[s]
	if !ok {
		return false
	}
	if s == next {
		return true
	}
	for _, st := range allowed {
		if st == next {
			return true
		}
	}
	return false
}

// OwnerSourcesFor lists the statuses from which an organizer may move to next.
func OwnerSourcesFor(next EventStatus) []EventStatus {
	var sources []EventStatus
	for from := range ownerStatusTransitions {
		if from.OwnerCanMoveTo(next) {
			sources = append(sources, from)
		}
	}
	return sources
}

// EventOrigin tells CMS-authored events apart from user-submitted ones.
type EventOrigin string

const (
	EventOriginCMS  EventOrigin = "cms"
	EventOriginUser EventOrigin = "user"
)

// PricingTier is one ticket option of a paid event.
type PricingTier struct {
	TierName       string           `json:"tierName" validate:"required"`
	Price          decimal.Decimal  `json:"price"`
	Currency       string           `json:"currency" validate:"required,len=3"`
	EarlyBirdPrice *decimal.Decimal `json:"earlyBirdPrice,omitempty"`
	Capacity       *int             `json:"capacity,omitempty" validate:"omitempty,min=0"`
	Includes       []string         `json:"includes,omitempty"`
}

// Location is the physical venue of an event or listing.
type Location struct {
	VenueName string `json:"venueName,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	Island    string `json:"island,omitempty"`
}

// ContactInfo is how attendees reach the organizer or business.
type ContactInfo struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty" validate:"omitempty,url"`
}

// Event is a fitness event, authored in the CMS or submitted by a user.
type Event struct {
	ID                   uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	Title                string           `json:"title" gorm:"size:255;not null"`
	Slug                 string           `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	EventType            string           `json:"eventType" gorm:"size:64;index"`
	Description          json.RawMessage  `json:"description,omitempty" gorm:"type:json;serializer:json"` // block content, passed through
	StartDate            time.Time        `json:"startDate" gorm:"index"`
	EndDate              *time.Time       `json:"endDate,omitempty"`
	IsVirtual            bool             `json:"isVirtual"`
	VirtualLink          string           `json:"virtualLink,omitempty" gorm:"size:1024"`
	Location             *Location        `json:"location,omitempty" gorm:"type:json;serializer:json"`
	Capacity             *int             `json:"capacity,omitempty"`
	CurrentRegistrations int              `json:"currentRegistrations" gorm:"not null;default:0"`
	RequiresRegistration bool             `json:"requiresRegistration"`
	IsFree               bool             `json:"isFree"`
	Price                *decimal.Decimal `json:"price,omitempty" gorm:"type:decimal(10,2)"` // legacy flat price
	Currency             string           `json:"currency,omitempty" gorm:"size:3"`
	Pricing              []PricingTier    `json:"pricing" gorm:"type:json;serializer:json"`
	EarlyBirdDeadline    *time.Time       `json:"earlyBirdDeadline,omitempty"`
	Status               EventStatus      `json:"status" gorm:"size:20;not null;index"`
	Featured             bool             `json:"featured" gorm:"index"`
	ContactInfo          *ContactInfo     `json:"contactInfo,omitempty" gorm:"type:json;serializer:json"`
	OwnerID              *uuid.UUID       `json:"ownerId,omitempty" gorm:"type:char(36);index"`
	Origin               EventOrigin      `json:"origin" gorm:"size:10;not null;index"`
	ExternalID           string           `json:"-" gorm:"size:128;index"` // CMS document id
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// SpotsLeft returns the remaining capacity, or nil when the event is unlimited.
func (e *Event) SpotsLeft() *int {
	if e.Capacity == nil {
		return nil
	}
	left := *e.Capacity - e.CurrentRegistrations
	if left < 0 {
		left = 0
	}
	return &left
}

// TierByName returns the index of the tier with the given name, or -1.
func (e *Event) TierByName(name string) int {
	for i, t := range e.Pricing {
		if t.TierName == name {
			return i
		}
	}
	return -1
}

// BeforeCreate sets UUID before creating the record.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

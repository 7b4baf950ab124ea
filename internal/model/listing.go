package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is a directory entry for a gym, trainer, studio or similar business.
type Listing struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Slug        string          `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Category    string          `json:"category" gorm:"size:64;index"`
	Description json.RawMessage `json:"description,omitempty" gorm:"type:json;serializer:json"`
	Location    *Location       `json:"location,omitempty" gorm:"type:json;serializer:json"`
	ContactInfo *ContactInfo    `json:"contactInfo,omitempty" gorm:"type:json;serializer:json"`
	Status      EventStatus     `json:"status" gorm:"size:20;not null;index"`
	Featured    bool            `json:"featured" gorm:"index"`
	Verified    bool            `json:"verified" gorm:"index"`
	ExternalID  string          `json:"-" gorm:"size:128;index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the authorization role carried by a user and its session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// NormalizeRole maps anything other than admin down to user.
func NormalizeRole(r Role) Role {
	if r == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User represents an account, either credential-based or linked to an OAuth provider.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255"` // empty for OAuth-only accounts
	Image        string    `json:"image,omitempty" gorm:"size:1024"`
	Provider     string    `json:"provider" gorm:"size:32;default:'credentials'"`
	Role         Role      `json:"role" gorm:"size:50;default:'user';index"`
	IsActive     bool      `json:"isActive" gorm:"index"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

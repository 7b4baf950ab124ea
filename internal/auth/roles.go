package auth

import (
	"github.com/google/uuid"

	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
)

// Identity is the authenticated principal of a request, always resolved
// from the user store rather than trusted from the token alone.
type Identity struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name,omitempty"`
	Image    string     `json:"image,omitempty"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"isActive"`
}

// IdentityFromUser builds an identity, normalizing the role.
func IdentityFromUser(u *model.User) *Identity {
	return &Identity{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Image:    u.Image,
		Role:     model.NormalizeRole(u.Role),
		IsActive: u.IsActive,
	}
}

// RequireRole gates an operation on the session role. A nil identity means
// the request carries no session.
func RequireRole(id *Identity, allowed ...model.Role) (*Identity, error) {
	if id == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !id.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	for _, role := range allowed {
		if id.Role == role {
			return id, nil
		}
	}
	return nil, apperrors.ErrInsufficientPermissions
}

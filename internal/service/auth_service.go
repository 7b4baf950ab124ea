package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bahafit/internal/auth"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/repository"
)

// Session is the token pair handed to a signed-in client.
type Session struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	ExpiresIn    int64          `json:"expiresIn"`
	User         *auth.Identity `json:"user"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*auth.Identity, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	OnOAuthSignIn(ctx context.Context, profile *auth.Profile) (*model.User, error)
	LoginWithProvider(ctx context.Context, profile *auth.Profile) (*Session, error)
	RefreshSession(ctx context.Context, claims *auth.Claims) (*auth.Identity, error)
	RefreshToken(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, refreshToken string, access *auth.Claims) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	log        *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, log *zap.Logger) AuthService {
	return &authService{
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		log:        log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a credentials account with a hashed password.
func (s *authService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = normalizeEmail(email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrUserAlreadyExists
	}

	hash, err := repository.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Provider:     "credentials",
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate checks credentials. The specific reason for a failure is
// returned so it can be logged; the HTTP layer collapses the credential cases.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*auth.Identity, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.HasPassword() {
		return nil, apperrors.ErrMissingPassword
	}
	if !repository.VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	return auth.IdentityFromUser(user), nil
}

// Login authenticates and issues a session.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	id, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) || errors.Is(err, apperrors.ErrMissingPassword) || errors.Is(err, apperrors.ErrAccountInactive) {
			s.log.Info("sign-in rejected", zap.String("reason", err.Error()))
		}
		return nil, err
	}
	return s.issue(ctx, id)
}

// OnOAuthSignIn creates the account on first sign-in with a provider. It is
// idempotent per email: an existing account is returned unchanged.
func (s *authService) OnOAuthSignIn(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", apperrors.ErrValidationFailed)
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	user := &model.User{
		Email:    email,
		Name:     profile.Name,
		Image:    profile.Image,
		Provider: profile.Provider,
		Role:     model.RoleUser,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent first sign-in may have won the unique email index.
		if again, findErr := s.users.FindByEmail(ctx, email); findErr == nil && again != nil {
			return again, nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created from provider", zap.String("user_id", user.ID.String()), zap.String("provider", profile.Provider))
	return user, nil
}

// LoginWithProvider signs in an OAuth profile.
func (s *authService) LoginWithProvider(ctx context.Context, profile *auth.Profile) (*Session, error) {
	user, err := s.OnOAuthSignIn(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	return s.issue(ctx, auth.IdentityFromUser(user))
}

// RefreshSession re-reads the user behind claims so that role and active
// flag always reflect the store, never the token.
func (s *authService) RefreshSession(ctx context.Context, claims *auth.Claims) (*auth.Identity, error) {
	if claims == nil || claims.Email == "" {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return auth.IdentityFromUser(user), nil
}

func (s *authService) issue(ctx context.Context, id *auth.Identity) (*Session, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(id)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, id.ID, id.Email, s.jwtService.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtService.AccessTTL().Seconds()),
		User:         id,
	}, nil
}

// RefreshToken validates a refresh token and returns a new access token
// carrying the user's current role.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	storedUserID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	if storedUserID.String() != claims.Subject || storedEmail != claims.Email {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	id, err := s.RefreshSession(ctx, claims)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !id.IsActive {
		return nil, apperrors.ErrAccountInactive
	}

	accessToken, err := s.jwtService.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &Session{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtService.AccessTTL().Seconds()),
		User:        id,
	}, nil
}

// Logout invalidates the refresh token and, when present, blacklists the
// current access token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, refreshToken string, access *auth.Claims) error {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return apperrors.ErrInvalidRefreshToken
	}
	if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if access != nil && access.ID != "" && access.ExpiresAt != nil {
		ttl := time.Until(access.ExpiresAt.Time)
		if ttl <= 0 {
			return nil
		}
		if err := s.tokenStore.BlacklistAccessToken(ctx, access.ID, ttl); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	return nil
}

// IsRevoked reports whether an access token was blacklisted by a logout.
func (s *authService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.tokenStore.IsAccessTokenBlacklisted(ctx, tokenID)
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bahafit/internal/model"
)

const (
	// AccessTokenExpiry is the default lifetime of access tokens.
	AccessTokenExpiry = 15 * time.Minute
	// RefreshTokenExpiry is the default lifetime of refresh tokens.
	RefreshTokenExpiry = 7 * 24 * time.Hour
	// StateTokenExpiry bounds how long an OAuth round trip may take.
	StateTokenExpiry = 10 * time.Minute

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	tokenTypeState   = "oauth_state"
)

// Claims is the session carried by access and refresh tokens. The subject is
// the user id.
type Claims struct {
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Image     string     `json:"image,omitempty"`
	Role      model.Role `json:"role"`
	Active    bool       `json:"active"`
	TokenType string     `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// StateClaims protect an OAuth round trip and remember where to send the user afterwards.
type StateClaims struct {
	Provider    string `json:"provider"`
	CallbackURL string `json:"callback_url"`
	TokenType   string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service. Zero TTLs fall back to the defaults.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = AccessTokenExpiry
	}
	if refreshTTL <= 0 {
		refreshTTL = RefreshTokenExpiry
	}
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL returns the lifetime of access tokens.
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *JWTService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        generateTokenID(),
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (s *JWTService) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// GenerateAccessToken issues an access token for the identity.
func (s *JWTService) GenerateAccessToken(id *Identity) (string, error) {
	return s.sign(&Claims{
		Email:            id.Email,
		Name:             id.Name,
		Image:            id.Image,
		Role:             id.Role,
		Active:           id.IsActive,
		TokenType:        tokenTypeAccess,
		RegisteredClaims: s.registered(id.ID.String(), s.accessTTL),
	})
}

// GenerateRefreshToken issues a refresh token. The token ID is returned
// separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(id *Identity) (tokenID string, token string, err error) {
	claims := &Claims{
		Email:            id.Email,
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: s.registered(id.ID.String(), s.refreshTTL),
	}
	token, err = s.sign(claims)
	return claims.ID, token, err
}

// GenerateStateToken signs the OAuth state for provider and callbackURL.
func (s *JWTService) GenerateStateToken(provider, callbackURL string) (string, error) {
	return s.sign(&StateClaims{
		Provider:         provider,
		CallbackURL:      callbackURL,
		TokenType:        tokenTypeState,
		RegisteredClaims: s.registered("", StateTokenExpiry),
	})
}

func (s *JWTService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return s.secret, nil
}

func (s *JWTService) parse(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TokenType != tokenType {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("token ID not found")
	}
	return claims, nil
}

// ValidateStateToken checks an OAuth state issued for provider.
func (s *JWTService) ValidateStateToken(tokenString, provider string) (*StateClaims, error) {
	claims := &StateClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TokenType != tokenTypeState || claims.Provider != provider {
		return nil, errors.New("invalid state")
	}
	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	return uuid.New().String()
}

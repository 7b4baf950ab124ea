package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
)

func testIdentity() *Identity {
	return &Identity{ID: uuid.New(), Email: "ava@example.com", Name: "Ava", Role: model.RoleAdmin, IsActive: true}
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 0, 0)
	id := testIdentity()

	token, err := svc.GenerateAccessToken(id)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id.ID, userID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.True(t, claims.Active)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	svc := NewJWTService("secret", 0, 0)
	id := testIdentity()

	_, refresh, err := svc.GenerateRefreshToken(id)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(refresh)
	assert.Error(t, err)

	access, err := svc.GenerateAccessToken(id)
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestJWTService_ExpiredAndForeignTokens(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, 0)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	token, err := svc.GenerateAccessToken(testIdentity())
	require.NoError(t, err)

	fresh := NewJWTService("secret", 0, 0)
	_, err = fresh.ValidateAccessToken(token)
	assert.Error(t, err)

	other := NewJWTService("other-secret", 0, 0)
	valid, err := other.GenerateAccessToken(testIdentity())
	require.NoError(t, err)
	_, err = fresh.ValidateAccessToken(valid)
	assert.Error(t, err)
}

func TestJWTService_StateToken(t *testing.T) {
	svc := NewJWTService("secret", 0, 0)

	state, err := svc.GenerateStateToken(ProviderGoogle, "/events/nassau-5k/checkout")
	require.NoError(t, err)

	claims, err := svc.ValidateStateToken(state, ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "/events/nassau-5k/checkout", claims.CallbackURL)

	_, err = svc.ValidateStateToken(state, ProviderFacebook)
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	admin := testIdentity()
	user := &Identity{ID: uuid.New(), Role: model.RoleUser, IsActive: true}
	inactive := &Identity{ID: uuid.New(), Role: model.RoleAdmin, IsActive: false}

	tests := []struct {
		name    string
		id      *Identity
		allowed []model.Role
		wantErr error
	}{
		{"no session", nil, []model.Role{model.RoleAdmin}, apperrors.ErrUnauthorized},
		{"inactive admin", inactive, []model.Role{model.RoleAdmin}, apperrors.ErrAccountInactive},
		{"user on admin route", user, []model.Role{model.RoleAdmin}, apperrors.ErrInsufficientPermissions},
		{"admin allowed", admin, []model.Role{model.RoleAdmin}, nil},
		{"user allowed", user, []model.Role{model.RoleUser, model.RoleAdmin}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequireRole(tt.id, tt.allowed...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, got)
		})
	}
}

func TestIdentityFromUser_NormalizesRole(t *testing.T) {
	id := IdentityFromUser(&model.User{ID: uuid.New(), Email: "x@example.com", Role: "superuser", IsActive: true})
	assert.Equal(t, model.RoleUser, id.Role)
}

func TestProviders(t *testing.T) {
	providers := NewProviders("http://localhost:8080/api/auth/oauth/", OAuthCredentials{ClientID: "id", ClientSecret: "secret"}, OAuthCredentials{})

	google, err := providers.Get(ProviderGoogle)
	require.NoError(t, err)
	assert.Contains(t, google.AuthCodeURL("abc"), "state=abc")
	assert.Contains(t, google.AuthCodeURL("abc"), "redirect_uri=http%3A%2F%2Flocalhost%3A8080%2Fapi%2Fauth%2Foauth%2Fgoogle%2Fcallback")

	_, err = providers.Get(ProviderFacebook)
	assert.ErrorIs(t, err, apperrors.ErrProviderNotConfigured)
}

func TestDecodeFacebookProfile(t *testing.T) {
	p, err := decodeFacebookProfile([]byte(`{"name":"Ava","email":"ava@example.com","picture":{"data":{"url":"https://img"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "https://img", p.Image)
}

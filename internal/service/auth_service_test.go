package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bahafit/internal/auth"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/repository"
)

func newAuthService(users *MockUserRepository, tokens *MockTokenStore) (AuthService, *auth.JWTService) {
	jwtService := auth.NewJWTService("test-secret", time.Minute, time.Hour)
	return NewAuthService(users, jwtService, tokens, zap.NewNop()), jwtService
}

func credentialsUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	hash, err := repository.HashPassword(password)
	require.NoError(t, err)
	return &model.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	}
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		nameField     string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:      "successful registration",
			email:     "Test@Example.com ",
			password:  "password123",
			nameField: "Test User",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:      "user already exists",
			email:     "existing@example.com",
			password:  "password123",
			nameField: "Existing User",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.User{Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			tt.setupMock(users)
			svc, _ := newAuthService(users, new(MockTokenStore))

			user, err := svc.Register(context.Background(), tt.email, tt.password, tt.nameField)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "test@example.com", user.Email)
				assert.Equal(t, tt.nameField, user.Name)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.True(t, user.IsActive)
				assert.True(t, repository.VerifyPassword(user.PasswordHash, tt.password))
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	active := credentialsUser(t, "ana@example.com", "secret-pass")
	inactive := credentialsUser(t, "ivan@example.com", "secret-pass")
	inactive.IsActive = false
	oauthOnly := &model.User{ID: uuid.New(), Email: "olu@example.com", Provider: "google", Role: model.RoleUser, IsActive: true}

	tests := []struct {
		name          string
		email         string
		password      string
		found         *model.User
		expectedError error
	}{
		{name: "unknown email", email: "nobody@example.com", password: "x", expectedError: apperrors.ErrInvalidCredentials},
		{name: "no password set", email: oauthOnly.Email, password: "x", found: oauthOnly, expectedError: apperrors.ErrMissingPassword},
		{name: "wrong password", email: active.Email, password: "nope", found: active, expectedError: apperrors.ErrInvalidCredentials},
		{name: "inactive account", email: inactive.Email, password: "secret-pass", found: inactive, expectedError: apperrors.ErrAccountInactive},
		{name: "valid credentials", email: active.Email, password: "secret-pass", found: active},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			if tt.found != nil {
				users.On("FindByEmail", mock.Anything, tt.email).Return(tt.found, nil)
			} else {
				users.On("FindByEmail", mock.Anything, tt.email).Return(nil, nil)
			}
			svc, _ := newAuthService(users, new(MockTokenStore))

			id, err := svc.Authenticate(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, id)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.found.ID, id.ID)
			assert.Equal(t, tt.found.Email, id.Email)
			assert.Equal(t, model.RoleUser, id.Role)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	user := credentialsUser(t, "test@example.com", "password123")
	users := new(MockUserRepository)
	tokens := new(MockTokenStore)
	users.On("FindByEmail", mock.Anything, "test@example.com").Return(user, nil)
	tokens.On("StoreRefreshToken", mock.Anything, mock.AnythingOfType("string"), user.ID, "test@example.com", time.Hour).Return(nil)
	svc, jwtService := newAuthService(users, tokens)

	session, err := svc.Login(context.Background(), "test@example.com", "password123")
	require.NoError(t, err)

	claims, err := jwtService.ValidateAccessToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, int64(60), session.ExpiresIn)
	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestAuthService_OnOAuthSignIn(t *testing.T) {
	profile := &auth.Profile{Provider: auth.ProviderGoogle, Email: "New@Example.com", Name: "New Person"}

	t.Run("creates the account on first sign-in", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, nil)
		users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.Email == "new@example.com" && u.Role == model.RoleUser && u.IsActive && u.PasswordHash == "" && u.Provider == auth.ProviderGoogle
		})).Return(nil)
		svc, _ := newAuthService(users, new(MockTokenStore))

		user, err := svc.OnOAuthSignIn(context.Background(), profile)
		require.NoError(t, err)
		assert.Equal(t, "New Person", user.Name)
		users.AssertExpectations(t)
	})

	t.Run("returns the existing account unchanged", func(t *testing.T) {
		existing := &model.User{ID: uuid.New(), Email: "new@example.com", Role: model.RoleAdmin, IsActive: true}
		users := new(MockUserRepository)
		users.On("FindByEmail", mock.Anything, "new@example.com").Return(existing, nil)
		svc, _ := newAuthService(users, new(MockTokenStore))

		user, err := svc.OnOAuthSignIn(context.Background(), profile)
		require.NoError(t, err)
		assert.Same(t, existing, user)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("recovers when a concurrent sign-in created the account", func(t *testing.T) {
		winner := &model.User{ID: uuid.New(), Email: "new@example.com", Role: model.RoleUser, IsActive: true}
		users := new(MockUserRepository)
		users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, nil).Once()
		users.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate entry"))
		users.On("FindByEmail", mock.Anything, "new@example.com").Return(winner, nil).Once()
		svc, _ := newAuthService(users, new(MockTokenStore))

		user, err := svc.OnOAuthSignIn(context.Background(), profile)
		require.NoError(t, err)
		assert.Equal(t, winner.ID, user.ID)
	})
}

func TestAuthService_RefreshSession_ReadsRoleFromStore(t *testing.T) {
	stored := &model.User{ID: uuid.New(), Email: "ana@example.com", Role: model.RoleAdmin, IsActive: false}
	users := new(MockUserRepository)
	users.On("FindByEmail", mock.Anything, "ana@example.com").Return(stored, nil)
	svc, _ := newAuthService(users, new(MockTokenStore))

	claims := &auth.Claims{Email: "ana@example.com", Role: model.RoleUser, Active: true}
	id, err := svc.RefreshSession(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, id.Role)
	assert.False(t, id.IsActive)

	users2 := new(MockUserRepository)
	users2.On("FindByEmail", mock.Anything, "gone@example.com").Return(nil, nil)
	svc2, _ := newAuthService(users2, new(MockTokenStore))
	_, err = svc2.RefreshSession(context.Background(), &auth.Claims{Email: "gone@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuthService_RefreshToken(t *testing.T) {
	user := credentialsUser(t, "test@example.com", "password123")
	users := new(MockUserRepository)
	tokens := new(MockTokenStore)
	svc, jwtService := newAuthService(users, tokens)

	id := auth.IdentityFromUser(user)
	tokenID, refresh, err := jwtService.GenerateRefreshToken(id)
	require.NoError(t, err)

	// Promoted since the refresh token was issued.
	promoted := *user
	promoted.Role = model.RoleAdmin
	tokens.On("GetRefreshToken", mock.Anything, tokenID).Return(user.ID, user.Email, nil)
	users.On("FindByEmail", mock.Anything, user.Email).Return(&promoted, nil)

	session, err := svc.RefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, session.User.Role)
	assert.Empty(t, session.RefreshToken)

	_, err = svc.RefreshToken(context.Background(), session.AccessToken)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestAuthService_Logout(t *testing.T) {
	user := credentialsUser(t, "test@example.com", "password123")
	tokens := new(MockTokenStore)
	svc, jwtService := newAuthService(new(MockUserRepository), tokens)

	id := auth.IdentityFromUser(user)
	tokenID, refresh, err := jwtService.GenerateRefreshToken(id)
	require.NoError(t, err)
	access, err := jwtService.GenerateAccessToken(id)
	require.NoError(t, err)
	accessClaims, err := jwtService.ValidateAccessToken(access)
	require.NoError(t, err)

	tokens.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
	tokens.On("BlacklistAccessToken", mock.Anything, accessClaims.ID, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= time.Minute
	})).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), refresh, accessClaims))
	tokens.AssertExpectations(t)

	assert.ErrorIs(t, svc.Logout(context.Background(), "garbage", nil), apperrors.ErrInvalidRefreshToken)
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"bahafit/internal/model"
	"bahafit/internal/payment"
	"bahafit/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventRepository is a mock implementation of EventRepository.
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) List(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Event), args.Error(1)
}

func (m *MockEventRepository) CountByType(ctx context.Context, f repository.EventFilter) (map[string]int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventRepository) FindBySlug(ctx context.Context, slug string) (*model.Event, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventRepository) Related(ctx context.Context, event *model.Event, now time.Time, limit int) ([]model.Event, error) {
	args := m.Called(ctx, event, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Event), args.Error(1)
}

func (m *MockEventRepository) Patch(ctx context.Context, id uuid.UUID, patch repository.EventPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEventRepository) UpsertBySlug(ctx context.Context, event *model.Event) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) ReserveSpot(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventRepository) ReleaseSpot(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRegistrationRepository is a mock implementation of RegistrationRepository.
type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockRegistrationRepository) find(args mock.Arguments) (*model.Registration, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return m.find(m.Called(ctx, id))
}

func (m *MockRegistrationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return m.find(m.Called(ctx, id))
}

func (m *MockRegistrationRepository) FindByPaymentReference(ctx context.Context, ref string) (*model.Registration, error) {
	return m.find(m.Called(ctx, ref))
}

func (m *MockRegistrationRepository) FindActiveByUserAndEvent(ctx context.Context, userID, eventID uuid.UUID) (*model.Registration, error) {
	return m.find(m.Called(ctx, userID, eventID))
}

func (m *MockRegistrationRepository) list(args mock.Arguments) ([]model.Registration, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Registration, error) {
	return m.list(m.Called(ctx, eventID))
}

func (m *MockRegistrationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Registration, error) {
	return m.list(m.Called(ctx, userID))
}

func (m *MockRegistrationRepository) ListAll(ctx context.Context) ([]model.Registration, error) {
	return m.list(m.Called(ctx))
}

func (m *MockRegistrationRepository) CountActiveByTier(ctx context.Context, eventID uuid.UUID) (map[string]int64, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockRegistrationRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockRegistrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RegistrationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRegistrationRepository) CheckIn(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRegistrationRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRegistrationRepository) Stats(ctx context.Context, eventID *uuid.UUID) (*model.RegistrationStats, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RegistrationStats), args.Error(1)
}

// MockUserEventRepository is a mock implementation of UserEventRepository.
type MockUserEventRepository struct {
	mock.Mock
}

func (m *MockUserEventRepository) Create(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockUserEventRepository) UpdateByID(ctx context.Context, id, userID uuid.UUID, patch map[string]interface{}) (bool, error) {
	args := m.Called(ctx, id, userID, patch)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserEventRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.Event, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Event), args.Error(1)
}

// fakeTransactor runs the callback directly against the mock repositories.
type fakeTransactor struct {
	events        *MockEventRepository
	registrations *MockRegistrationRepository
}

func (f *fakeTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	return fn(ctx, repository.TxRepos{Events: f.events, Registrations: f.registrations})
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uuid.UUID, email string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, email, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uuid.UUID, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uuid.UUID), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookEvent), args.Error(1)
}

// recordingPublisher keeps the routing keys it was asked to publish.
type recordingPublisher struct {
	keys []string
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, key string, v interface{}) error {
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

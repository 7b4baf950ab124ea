package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bahafit/internal/cache"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/repository"
)

// AdminEventQuery filters the back-office event table.
type AdminEventQuery struct {
	Status    model.EventStatus
	EventType string
	Featured  *bool
	Origin    model.EventOrigin
}

// AdminService moderates events and listings.
type AdminService interface {
	ListEvents(ctx context.Context, q AdminEventQuery) ([]model.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)
	PatchEvent(ctx context.Context, id uuid.UUID, patch repository.EventPatch) (*model.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	ListListings(ctx context.Context, f repository.ListingFilter) ([]model.Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	PatchListing(ctx context.Context, id uuid.UUID, patch repository.ListingPatch) (*model.Listing, error)
	DeleteListing(ctx context.Context, id uuid.UUID) error
}

type adminService struct {
	events   repository.EventRepository
	listings repository.ListingRepository
	cache    *cache.Client
	log      *zap.Logger
}

// NewAdminService builds an AdminService.
func NewAdminService(events repository.EventRepository, listings repository.ListingRepository, cache *cache.Client, log *zap.Logger) AdminService {
	return &adminService{events: events, listings: listings, cache: cache, log: log}
}

func (s *adminService) ListEvents(ctx context.Context, q AdminEventQuery) ([]model.Event, error) {
	filter := repository.EventFilter{
		EventType:   q.EventType,
		Featured:    q.Featured,
		Origin:      q.Origin,
		NewestFirst: true,
	}
	if q.Status != "" {
		filter.Statuses = []model.EventStatus{q.Status}
	}
	return s.events.List(ctx, filter)
}

func (s *adminService) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return event, nil
}

// PatchEvent changes status and featured flag. Only the patched event is touched.
func (s *adminService) PatchEvent(ctx context.Context, id uuid.UUID, patch repository.EventPatch) (*model.Event, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidationFailed, *patch.Status)
	}
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.events.Patch(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("patch event: %w", err)
	}
	if patch.Status != nil {
		event.Status = *patch.Status
	}
	if patch.Featured != nil {
		event.Featured = *patch.Featured
	}
	_ = s.cache.Delete(ctx, eventCacheKey(event.Slug))
	s.log.Info("event moderated", zap.String("event_id", id.String()), zap.String("status", string(event.Status)), zap.Bool("featured", event.Featured))
	return event, nil
}

func (s *adminService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	_ = s.cache.Delete(ctx, eventCacheKey(event.Slug))
	s.log.Info("event deleted", zap.String("event_id", id.String()))
	return nil
}

func (s *adminService) ListListings(ctx context.Context, f repository.ListingFilter) ([]model.Listing, error) {
	return s.listings.List(ctx, f)
}

func (s *adminService) GetListing(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	if listing == nil {
		return nil, apperrors.ErrListingNotFound
	}
	return listing, nil
}

func (s *adminService) PatchListing(ctx context.Context, id uuid.UUID, patch repository.ListingPatch) (*model.Listing, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidationFailed, *patch.Status)
	}
	listing, err := s.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.listings.Patch(ctx, id, patch); err != nil {
		return nil, fmt.Errorf("patch listing: %w", err)
	}
	if patch.Status != nil {
		listing.Status = *patch.Status
	}
	if patch.Featured != nil {
		listing.Featured = *patch.Featured
	}
	if patch.Verified != nil {
		listing.Verified = *patch.Verified
	}
	_ = s.cache.Delete(ctx, listingCacheKey(listing.Slug))
	return listing, nil
}

func (s *adminService) DeleteListing(ctx context.Context, id uuid.UUID) error {
	listing, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrListingNotFound
		}
		return fmt.Errorf("delete listing: %w", err)
	}
	_ = s.cache.Delete(ctx, listingCacheKey(listing.Slug))
	return nil
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bahafit/internal/cache"
	"bahafit/internal/cms"
	"bahafit/internal/model"
	"bahafit/internal/repository"
)

// ImportSummary counts what an import changed.
type ImportSummary struct {
	EventsCreated   int `json:"eventsCreated"`
	EventsUpdated   int `json:"eventsUpdated"`
	ListingsCreated int `json:"listingsCreated"`
	ListingsUpdated int `json:"listingsUpdated"`
	Skipped         int `json:"skipped"`
}

// ImportService loads CMS content into the catalog and bootstraps accounts.
type ImportService interface {
	Import(ctx context.Context, export *cms.Export) (*ImportSummary, error)
	EnsureAdmin(ctx context.Context, email, password, name string) (*model.User, bool, error)
}

type importService struct {
	events   repository.EventRepository
	listings repository.ListingRepository
	users    repository.UserRepository
	cache    *cache.Client
	log      *zap.Logger
}

// NewImportService builds an ImportService.
func NewImportService(events repository.EventRepository, listings repository.ListingRepository, users repository.UserRepository, cache *cache.Client, log *zap.Logger) ImportService {
	return &importService{events: events, listings: listings, users: users, cache: cache, log: log}
}

// Import upserts every document by slug. Registration counters of existing
// events are preserved.
func (s *importService) Import(ctx context.Context, export *cms.Export) (*ImportSummary, error) {
	summary := &ImportSummary{Skipped: export.Skipped}

	for i := range export.Events {
		event := export.Events[i]
		created, err := s.events.UpsertBySlug(ctx, &event)
		if err != nil {
			return summary, fmt.Errorf("import event %s: %w", event.Slug, err)
		}
		if created {
			summary.EventsCreated++
		} else {
			summary.EventsUpdated++
		}
		_ = s.cache.Delete(ctx, eventCacheKey(event.Slug))
	}

	for i := range export.Listings {
		listing := export.Listings[i]
		created, err := s.listings.UpsertBySlug(ctx, &listing)
		if err != nil {
			return summary, fmt.Errorf("import listing %s: %w", listing.Slug, err)
		}
		if created {
			summary.ListingsCreated++
		} else {
			summary.ListingsUpdated++
		}
		_ = s.cache.Delete(ctx, listingCacheKey(listing.Slug))
	}

	s.log.Info("cms import finished",
		zap.Int("events_created", summary.EventsCreated),
		zap.Int("events_updated", summary.EventsUpdated),
		zap.Int("listings_created", summary.ListingsCreated),
		zap.Int("listings_updated", summary.ListingsUpdated),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// EnsureAdmin creates an active admin with the given credentials, or
// promotes and reactivates the existing account with that email. The
// password of an existing account is left alone. It reports whether an
// account was created.
func (s *importService) EnsureAdmin(ctx context.Context, email, password, name string) (*model.User, bool, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if user != nil {
		if user.Role != model.RoleAdmin {
			if err := s.users.UpdateRole(ctx, user.ID, model.RoleAdmin); err != nil {
				return nil, false, fmt.Errorf("promote user: %w", err)
			}
			user.Role = model.RoleAdmin
		}
		if !user.IsActive {
			if err := s.users.SetActive(ctx, user.ID, true); err != nil {
				return nil, false, fmt.Errorf("activate user: %w", err)
			}
			user.IsActive = true
		}
		return user, false, nil
	}

	hash, err := repository.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user = &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     "credentials",
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return user, true, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"bahafit/internal/cache"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
	"bahafit/internal/repository"
)

const listingCacheTTL = 5 * time.Minute

func listingCacheKey(slug string) string {
	return "listing:slug:" + slug
}

// ListingQuery filters the public directory.
type ListingQuery struct {
	Category string
	Search   string
	Featured *bool
	Verified *bool
	Limit    int
}

// ListingService serves the public business directory.
type ListingService interface {
	List(ctx context.Context, q ListingQuery) ([]model.Listing, error)
	GetBySlug(ctx context.Context, slug string) (*model.Listing, error)
}

type listingService struct {
	listings repository.ListingRepository
	cache    *cache.Client
}

// NewListingService builds a ListingService.
func NewListingService(listings repository.ListingRepository, cache *cache.Client) ListingService {
	return &listingService{listings: listings, cache: cache}
}

func (s *listingService) List(ctx context.Context, q ListingQuery) ([]model.Listing, error) {
	return s.listings.List(ctx, repository.ListingFilter{
		Status:   model.EventStatusPublished,
		Category: q.Category,
		Search:   q.Search,
		Featured: q.Featured,
		Verified: q.Verified,
		Limit:    q.Limit,
	})
}

func (s *listingService) GetBySlug(ctx context.Context, slug string) (*model.Listing, error) {
	var cached model.Listing
	if s.cache.GetJSON(ctx, listingCacheKey(slug), &cached) {
		return &cached, nil
	}
	listing, err := s.listings.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	if listing == nil || listing.Status != model.EventStatusPublished {
		return nil, apperrors.ErrListingNotFound
	}
	_ = s.cache.SetJSON(ctx, listingCacheKey(slug), listing, listingCacheTTL)
	return listing, nil
}

package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bahafit/internal/model"
)

// ListingFilter narrows directory listings.
type ListingFilter struct {
	Status   model.EventStatus
	Category string
	Search   string
	Featured *bool
	Verified *bool
	Limit    int
}

// ListingPatch carries the moderation fields an admin may change.
type ListingPatch struct {
	Status   *model.EventStatus
	Featured *bool
	Verified *bool
}

// ListingRepository defines listing persistence operations.
type ListingRepository interface {
	List(ctx context.Context, f ListingFilter) ([]model.Listing, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	FindBySlug(ctx context.Context, slug string) (*model.Listing, error)
	Patch(ctx context.Context, id uuid.UUID, patch ListingPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpsertBySlug(ctx context.Context, listing *model.Listing) (bool, error)
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) List(ctx context.Context, f ListingFilter) ([]model.Listing, error) {
	q := r.db.WithContext(ctx).Model(&model.Listing{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}
	if f.Verified != nil {
		q = q.Where("verified = ?", *f.Verified)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	listings := []model.Listing{}
	if err := q.Order("featured DESC, name ASC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &listing, nil
}

func (r *listingRepository) FindBySlug(ctx context.Context, slug string) (*model.Listing, error) {
	var listing model.Listing
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&listing).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &listing, nil
}

func (r *listingRepository) Patch(ctx context.Context, id uuid.UUID, patch ListingPatch) error {
	updates := map[string]interface{}{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Featured != nil {
		updates["featured"] = *patch.Featured
	}
	if patch.Verified != nil {
		updates["verified"] = *patch.Verified
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Listing{}).Where("id = ?", id).Updates(updates).Error
}

func (r *listingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *listingRepository) UpsertBySlug(ctx context.Context, listing *model.Listing) (bool, error) {
	var existing model.Listing
	err := r.db.WithContext(ctx).Where("slug = ?", listing.Slug).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, r.db.WithContext(ctx).Create(listing).Error
	}
	if err != nil {
		return false, err
	}
	listing.ID = existing.ID
	listing.CreatedAt = existing.CreatedAt
	return false, r.db.WithContext(ctx).Save(listing).Error
}

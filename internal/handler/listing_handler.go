package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bahafit/internal/cms"
	"bahafit/internal/service"
)

// ListingHandler serves the public business directory.
type ListingHandler struct {
	listings service.ListingService
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(listings service.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// ListListings godoc
// @Summary List published listings
// @Tags listings
// @Produce json
// @Param category query string false "Listing category"
// @Param search query string false "Name search"
// @Param featured query bool false "Featured only"
// @Param verified query bool false "Verified only"
// @Param limit query int false "Maximum results"
// @Success 200 {array} model.Listing
// @Failure 400 {object} errors.ErrorResponse
// @Router /listings [get]
func (h *ListingHandler) ListListings(c echo.Context) error {
	featured, err := queryBool(c, "featured")
	if err != nil {
		return err
	}
	verified, err := queryBool(c, "verified")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	category := c.QueryParam("category")
	if category != "" && !cms.ValidListingCategory(category) {
		return badRequest("unknown category")
	}

	listings, err := h.listings.List(c.Request().Context(), service.ListingQuery{
		Category: category,
		Search:   c.QueryParam("search"),
		Featured: featured,
		Verified: verified,
		Limit:    limit,
	})
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, listings)
}

// GetListing godoc
// @Summary Get a published listing by slug
// @Tags listings
// @Produce json
// @Param slug path string true "Listing slug"
// @Success 200 {object} model.Listing
// @Failure 404 {object} errors.ErrorResponse
// @Router /listings/{slug} [get]
func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listings.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, listing)
}

// Schema godoc
// @Summary Content schema options
// @Description Event types, statuses, listing categories, islands and currencies.
// @Tags cms
// @Produce json
// @Success 200 {object} cms.Schema
// @Router /cms/schema [get]
func (h *ListingHandler) Schema(c echo.Context) error {
	return c.JSON(http.StatusOK, cms.Current())
}

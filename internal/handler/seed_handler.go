package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"bahafit/internal/cms"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/service"
)

// SeedHandler loads CMS exports into the catalog.
type SeedHandler struct {
	importer      service.ImportService
	defaultSource string
}

// NewSeedHandler creates a new seed handler. defaultSource is used when a
// request carries no export body.
func NewSeedHandler(importer service.ImportService, defaultSource string) *SeedHandler {
	return &SeedHandler{importer: importer, defaultSource: defaultSource}
}

// ImportCMS godoc
// @Summary Import a CMS export
// @Description Upserts events and listings by slug from the posted export (NDJSON or JSON array). An empty body imports the configured export.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ImportSummary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/import [post]
func (h *SeedHandler) ImportCMS(c echo.Context) error {
	ctx := c.Request().Context()

	var body io.Reader = c.Request().Body
	if c.Request().ContentLength == 0 {
		if h.defaultSource == "" {
			return badRequest("no export posted and no CMS_EXPORT configured")
		}
		rc, err := cms.Open(ctx, h.defaultSource)
		if err != nil {
			return fail(err)
		}
		defer rc.Close()
		body = rc
	}

	export, err := cms.Decode(body)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err))
	}
	summary, err := h.importer.Import(ctx, export)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, summary)
}

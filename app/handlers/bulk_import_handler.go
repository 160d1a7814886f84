package handlers

import (
	"github.com/amirphl/utm-tracker/app/dto"
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const maxSpreadsheetSize = 10 << 20

// BulkImportHandlerInterface defines the contract for bulk link endpoints
type BulkImportHandlerInterface interface {
	Import(c fiber.Ctx) error
	ImportXLSX(c fiber.Ctx) error
	FixBulkLinks(c fiber.Ctx) error
}

type BulkImportHandler struct {
	baseHandler
	flow businessflow.BulkImportFlow
}

func NewBulkImportHandler(flow businessflow.BulkImportFlow, logger *zap.Logger) *BulkImportHandler {
	return &BulkImportHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// Import stores spreadsheet rows posted as JSON
// @Summary Bulk Import UTM Links
// @Tags BulkImport
// @Accept json
// @Produce json
// @Param request body dto.BulkImportRequest true "Rows"
// @Success 200 {object} dto.BulkImportResponse
// @Failure 400 {object} dto.ErrorMessageResponse
// @Failure 500 {object} dto.ErrorMessageResponse
// @Router /api/v1/bulk-import [post]
func (h *BulkImportHandler) Import(c fiber.Ctx) error {
	setCORSHeaders(c)

	var req dto.BulkImportRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorMessageResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
	}

	items, err := h.flow.ParseBulkPayload(req.Links)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{Error: "Invalid data format. Expected { links: Array }"})
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/bulk-import")
	defer cancel()

	return c.Status(fiber.StatusOK).JSON(h.flow.Import(ctx, items))
}

// ImportXLSX stores the rows of an uploaded spreadsheet
// @Summary Bulk Import UTM Links from XLSX
// @Tags BulkImport
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet"
// @Success 200 {object} dto.BulkImportResponse
// @Failure 400 {object} dto.ErrorMessageResponse
// @Router /api/v1/bulk-import/xlsx [post]
func (h *BulkImportHandler) ImportXLSX(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{Error: "file is required"})
	}
	if fh.Size > maxSpreadsheetSize {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{Error: "file is too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{Error: "file could not be opened", Details: err.Error()})
	}
	defer f.Close()

	ctx, cancel := h.createRequestContext(c, "/api/v1/bulk-import/xlsx")
	defer cancel()

	resp, err := h.flow.ImportXLSX(ctx, f)
	if err != nil {
		if businessflow.IsSpreadsheetInvalid(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{Error: "Invalid spreadsheet", Details: err.Error()})
		}
		h.logger.Error("Spreadsheet import failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorMessageResponse{Error: "Internal server error"})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// FixBulkLinks re-points bulk imported short links at the tracker
// @Summary Fix Bulk Links
// @Tags BulkImport
// @Produce json
// @Success 200 {object} dto.BulkFixResponse
// @Failure 400 {object} dto.ErrorMessageResponse
// @Failure 500 {object} dto.ErrorMessageResponse
// @Router /api/v1/bulk-import/fix [post]
func (h *BulkImportHandler) FixBulkLinks(c fiber.Ctx) error {
	setCORSHeaders(c)

	// the fixer is throttled; it gets the long timeout
	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/bulk-import/fix", bulkFixTimeout)
	defer cancel()

	resp, err := h.flow.FixBulkLinks(ctx)
	if err != nil {
		if businessflow.IsShortenerNotConfigured(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{
				Error:   "TinyURL API token not configured",
				Message: "Please configure TINYURL_API_TOKEN",
			})
		}
		h.logger.Error("Bulk links fix failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorMessageResponse{
			Error:   "Failed to fetch bulk links",
			Details: err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

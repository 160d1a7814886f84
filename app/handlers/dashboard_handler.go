package handlers

import (
	"github.com/amirphl/utm-tracker/app/dto"
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// DashboardHandlerInterface defines the contract for dashboard read endpoints
type DashboardHandlerInterface interface {
	ListUTMLinks(c fiber.Ctx) error
	ExportCSV(c fiber.Ctx) error
	ExportXLSX(c fiber.Ctx) error
	Catalog(c fiber.Ctx) error
}

type DashboardHandler struct {
	baseHandler
	flow businessflow.DashboardFlow
}

func NewDashboardHandler(flow businessflow.DashboardFlow, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// bindQuery answers 400 itself; a nil request means the response is already written
func (h *DashboardHandler) bindQuery(c fiber.Ctx) (*dto.ListUTMLinksRequest, error) {
	var req dto.ListUTMLinksRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&req); msgs != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}
	return &req, nil
}

// ListUTMLinks lists link records with filters and pagination
// @Summary List UTM Links
// @Tags Dashboard
// @Produce json
// @Param search query string false "Substring of full URL, email or campaign"
// @Param program query string false "Program or all"
// @Param channel query string false "Channel or all"
// @Param platform query string false "Platform or all"
// @Param source query string false "individual, bulk or all"
// @Param status query string false "provisioning, complete or all"
// @Param order_by query string false "newest, oldest or clicks"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, 1 to 100"
// @Success 200 {object} dto.APIResponse{data=dto.ListUTMLinksResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/utm-links [get]
func (h *DashboardHandler) ListUTMLinks(c fiber.Ctx) error {
	req, err := h.bindQuery(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/utm-links")
	defer cancel()

	result, err := h.flow.ListUTMLinks(ctx, req)
	if err != nil {
		if businessflow.IsInvalidPagination(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "VALIDATION_ERROR", nil)
		}
		h.logger.Error("List UTM links failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list UTM links", "LIST_UTM_LINKS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "UTM links retrieved successfully", result)
}

// ExportCSV downloads the filtered records as CSV
// @Summary Export UTM Links as CSV
// @Tags Dashboard
// @Produce text/csv
// @Success 200 {file} file
// @Router /api/v1/utm-links/export/csv [get]
func (h *DashboardHandler) ExportCSV(c fiber.Ctx) error {
	req, err := h.bindQuery(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/utm-links/export/csv")
	defer cancel()

	filename, data, err := h.flow.ExportCSV(ctx, req)
	if err != nil {
		h.logger.Error("CSV export failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export UTM links", "EXPORT_UTM_LINKS_FAILED", nil)
	}
	return attachment(c, "text/csv; charset=utf-8", filename, data)
}

// ExportXLSX downloads the filtered records as an Excel workbook
// @Summary Export UTM Links as XLSX
// @Tags Dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /api/v1/utm-links/export/xlsx [get]
func (h *DashboardHandler) ExportXLSX(c fiber.Ctx) error {
	req, err := h.bindQuery(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/utm-links/export/xlsx")
	defer cancel()

	filename, data, err := h.flow.ExportXLSX(ctx, req)
	if err != nil {
		h.logger.Error("XLSX export failed", zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export UTM links", "EXPORT_UTM_LINKS_FAILED", nil)
	}
	return attachment(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", filename, data)
}

// Catalog returns the builder's selection tables
// @Summary UTM Builder Catalog
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CatalogResponse}
// @Router /api/v1/catalog [get]
func (h *DashboardHandler) Catalog(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Catalog retrieved successfully", h.flow.Catalog())
}

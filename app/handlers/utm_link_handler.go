package handlers

import (
	"github.com/amirphl/utm-tracker/app/dto"
	"github.com/amirphl/utm-tracker/app/middleware"
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UTMLinkHandlerInterface defines the contract for link builder handlers
type UTMLinkHandlerInterface interface {
	CreateUTMLink(c fiber.Ctx) error
	GetUTMLink(c fiber.Ctx) error
}

type UTMLinkHandler struct {
	baseHandler
	flow businessflow.UTMLinkFlow
}

func NewUTMLinkHandler(flow businessflow.UTMLinkFlow, logger *zap.Logger) *UTMLinkHandler {
	return &UTMLinkHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// CreateUTMLink builds, stores and shortens a UTM link
// @Summary Create UTM Link
// @Tags UTMLinks
// @Accept json
// @Produce json
// @Param request body dto.CreateUTMLinkRequest true "Builder form"
// @Success 201 {object} dto.APIResponse{data=dto.CreateUTMLinkResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/utm-links [post]
func (h *UTMLinkHandler) CreateUTMLink(c fiber.Ctx) error {
	var req dto.CreateUTMLinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if msgs := h.validate(&req); msgs != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs)
	}

	var userID *uuid.UUID
	if id, ok := middleware.GetUserIDFromContext(c); ok {
		userID = &id
	}
	if req.Email == "" {
		if claims, ok := middleware.GetTokenClaimsFromContext(c); ok {
			req.Email = claims.Email
		}
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))

	ctx, cancel := h.createRequestContext(c, "/api/v1/utm-links")
	defer cancel()

	result, err := h.flow.CreateUTMLink(ctx, &req, userID, metadata)
	if err != nil {
		if businessflow.IsUnknownCatalogValue(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "VALIDATION_ERROR", nil)
		}
		h.logger.Error("UTM link creation failed", zap.String("request_id", metadata.RequestID), zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create UTM link", "CREATE_UTM_LINK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "UTM link created successfully", result)
}

// GetUTMLink returns one record with its logged visitor count
// @Summary Get UTM Link
// @Tags UTMLinks
// @Produce json
// @Param id path string true "Link ID"
// @Success 200 {object} dto.APIResponse{data=dto.UTMLinkDetailResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/utm-links/{id} [get]
func (h *UTMLinkHandler) GetUTMLink(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/utm-links/:id")
	defer cancel()

	result, err := h.flow.GetUTMLink(ctx, c.Params("id"))
	if err != nil {
		if businessflow.IsUTMLinkNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "UTM link not found", "UTM_LINK_NOT_FOUND", nil)
		}
		h.logger.Error("Get UTM link failed", zap.String("id", c.Params("id")), zap.Error(err))
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get UTM link", "GET_UTM_LINK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "UTM link retrieved successfully", result)
}

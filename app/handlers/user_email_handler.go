package handlers

import (
	"github.com/amirphl/utm-tracker/app/dto"
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type UserEmailHandlerInterface interface {
	GetUserEmails(c fiber.Ctx) error
}

type UserEmailHandler struct {
	baseHandler
	flow businessflow.UserEmailFlow
}

func NewUserEmailHandler(flow businessflow.UserEmailFlow, logger *zap.Logger) *UserEmailHandler {
	return &UserEmailHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// GetUserEmails maps user ids to emails; unresolvable ids map to "Unknown"
// @Summary Resolve User Emails
// @Tags Users
// @Accept json
// @Produce json
// @Param request body dto.UserEmailsRequest true "User ids"
// @Success 200 {object} dto.UserEmailsResponse
// @Failure 400 {object} dto.ErrorMessageResponse
// @Failure 500 {object} dto.ErrorMessageResponse
// @Router /api/v1/user-emails [post]
func (h *UserEmailHandler) GetUserEmails(c fiber.Ctx) error {
	setCORSHeaders(c)

	var req dto.UserEmailsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorMessageResponse{Error: err.Error()})
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/user-emails")
	defer cancel()

	resp, err := h.flow.GetUserEmails(ctx, &req)
	if err != nil {
		if businessflow.IsInvalidUserIDs(err) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{Error: "Invalid userIds provided"})
		}
		h.logger.Error("User email lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorMessageResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

package handlers

import (
	"strings"

	"github.com/amirphl/utm-tracker/app/dto"
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ShortLinkHandlerInterface defines contract for the public shorten endpoint
type ShortLinkHandlerInterface interface {
	Shorten(c fiber.Ctx) error
	Preflight(c fiber.Ctx) error
}

type ShortLinkHandler struct {
	baseHandler
	provisioner businessflow.ShortLinkProvisioner
}

func NewShortLinkHandler(provisioner businessflow.ShortLinkProvisioner, logger *zap.Logger) *ShortLinkHandler {
	return &ShortLinkHandler{baseHandler: newBaseHandler(logger), provisioner: provisioner}
}

// Shorten returns a short URL for any URL. Shortener failures fall back to the input URL.
// @Summary Shorten URL
// @Tags ShortLinks
// @Accept json
// @Produce json
// @Param request body dto.ShortenRequest true "URL and optional alias"
// @Success 200 {object} dto.ShortenResponse
// @Failure 400 {object} dto.ErrorMessageResponse
// @Failure 500 {object} dto.ErrorMessageResponse
// @Router /api/v1/shorten [post]
func (h *ShortLinkHandler) Shorten(c fiber.Ctx) error {
	setCORSHeaders(c)

	var req dto.ShortenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorMessageResponse{Error: err.Error()})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorMessageResponse{Error: "URL is required"})
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/shorten")
	defer cancel()

	shortURL := h.provisioner.Provision(ctx, strings.TrimSpace(req.URL), req.CustomAlias)
	return c.Status(fiber.StatusOK).JSON(dto.ShortenResponse{ShortURL: shortURL})
}

func (h *ShortLinkHandler) Preflight(c fiber.Ctx) error {
	setCORSHeaders(c)
	return c.SendStatus(fiber.StatusOK)
}

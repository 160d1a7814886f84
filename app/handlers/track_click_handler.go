package handlers

import (
	businessflow "github.com/amirphl/utm-tracker/business_flow"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// TrackClickHandlerInterface defines contract for the public click tracker
type TrackClickHandlerInterface interface {
	Track(c fiber.Ctx) error
	Preflight(c fiber.Ctx) error
}

type TrackClickHandler struct {
	baseHandler
	flow businessflow.ClickTrackingFlow
}

func NewTrackClickHandler(flow businessflow.ClickTrackingFlow, logger *zap.Logger) *TrackClickHandler {
	return &TrackClickHandler{baseHandler: newBaseHandler(logger), flow: flow}
}

// Track counts the visit and redirects to the link's destination
// @Summary Track Click
// @Tags Tracking
// @Param id query string true "Link ID"
// @Success 302 {string} string "Redirect"
// @Failure 400 {string} string "Missing tracking ID"
// @Failure 404 {string} string "Link not found"
// @Router /api/v1/track [get]
func (h *TrackClickHandler) Track(c fiber.Ctx) error {
	setCORSHeaders(c)

	ip := businessflow.ResolveClientIP(c.Get("X-Forwarded-For"), c.Get("X-Real-IP"), c.IP())
	metadata := businessflow.NewClientMetadata(ip, c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))

	ctx, cancel := h.createRequestContextWithTimeout(c, utils.TrackPath, utils.VisitTimeout)
	defer cancel()

	destination, err := h.flow.TrackClick(ctx, c.Query("id"), metadata)
	if err != nil {
		if businessflow.IsTrackingIDRequired(err) {
			return c.Status(fiber.StatusBadRequest).SendString("Missing tracking ID")
		}
		if businessflow.IsUTMLinkNotFound(err) {
			return c.Status(fiber.StatusNotFound).SendString("Link not found")
		}
		h.logger.Error("Track click failed", zap.String("id", c.Query("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	return c.Redirect().Status(fiber.StatusFound).To(destination)
}

// Preflight answers CORS preflight requests for the tracker
func (h *TrackClickHandler) Preflight(c fiber.Ctx) error {
	setCORSHeaders(c)
	return c.Status(fiber.StatusOK).SendString("ok")
}

package api

import (
	"context"
	"time"

	models "ChartSense/internal/domain/models"
	domrepo "ChartSense/internal/domain/repository"
	xhttp "ChartSense/pkg/http"
	xlogger "ChartSense/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SubscriptionsEchoHandler exposes tier lookups over HTTP.
type SubscriptionsEchoHandler struct {
	logger  *xlogger.Logger
	tiers   domrepo.TierDirectory
	timeout time.Duration
}

func NewSubscriptionsEchoHandler(logger *xlogger.Logger, tiers domrepo.TierDirectory, timeout time.Duration) *SubscriptionsEchoHandler {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &SubscriptionsEchoHandler{logger: logger, tiers: tiers, timeout: timeout}
}

func (h *SubscriptionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/subscriptions")
	g.GET("/check", h.Check)
}

func (h *SubscriptionsEchoHandler) Check(c echo.Context) error {
	req := &models.TierCheckRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	tier, err := h.tiers.Lookup(ctx, req.UserID)
	if err != nil {
		h.logger.Error("tier lookup error", xlogger.String("user_id", req.UserID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("tier directory unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, models.TierCheckResponse{UserID: req.UserID, Tier: tier})
}

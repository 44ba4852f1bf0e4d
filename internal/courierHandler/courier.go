package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"homecheff/internal/courierHandler/models"
	"homecheff/internal/delivery"
	"homecheff/internal/dispatch"
	"homecheff/internal/geo"
	"homecheff/internal/middleware"
	"homecheff/internal/repository"
)

type Dispatcher interface {
	Available(ctx context.Context, courierID string) ([]delivery.Eligible, error)
	Claim(ctx context.Context, courierID, candidateID string) (delivery.Eligible, error)
	Complete(ctx context.Context, courierID, candidateID string) error
	SetOnline(ctx context.Context, courierID string, online bool) error
	UpdateSettings(ctx context.Context, courierID string, settings repository.CourierSettings) error
	ReportPosition(ctx context.Context, courierID string, p geo.Point) error
}

type CourierHandler struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewCourierHandler(dispatcher Dispatcher, logger *zap.Logger) *CourierHandler {
	return &CourierHandler{dispatcher: dispatcher, logger: logger}
}

// errorResponse maps dispatch and repository errors to HTTP answers.
func (h *CourierHandler) errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]string{"message": "Delivery is no longer available"})
	case errors.Is(err, dispatch.ErrNotEligible):
		return c.JSON(http.StatusForbidden, map[string]string{"message": "Delivery is outside your range"})
	case errors.Is(err, dispatch.ErrInvalidPosition):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid GPS position"})
	case errors.Is(err, dispatch.ErrInvalidRadius):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Max distance must be positive"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Not found"})
	}
	h.logger.Error("Courier request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
}

func courierID(c echo.Context) (string, bool) {
	p, ok := middleware.PrincipalFrom(c)
	return p.UserID, ok
}

// SetStatus puts the courier online or offline.
func (h *CourierHandler) SetStatus(c echo.Context) error {
	id, ok := courierID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	var req models.StatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	if err := h.dispatcher.SetOnline(c.Request().Context(), id, req.Online); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Status updated", "online": req.Online})
}

func (h *CourierHandler) UpdateSettings(c echo.Context) error {
	id, ok := courierID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	var req models.SettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	err := h.dispatcher.UpdateSettings(c.Request().Context(), id, repository.CourierSettings{
		GPSTracking:    req.GPSTracking,
		MaxDistanceKm:  req.MaxDistanceKm,
		Home:           req.Home,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Settings updated"})
}

// ReportPosition takes a live GPS fix from the courier app.
func (h *CourierHandler) ReportPosition(c echo.Context) error {
	id, ok := courierID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	var req models.PositionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	if err := h.dispatcher.ReportPosition(c.Request().Context(), id, geo.Point{Lat: req.Lat, Lng: req.Lng}); err != nil {
		return h.errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Deliveries lists the open deliveries within the courier's range.
func (h *CourierHandler) Deliveries(c echo.Context) error {
	id, ok := courierID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	list, err := h.dispatcher.Available(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"deliveries": list})
}

func (h *CourierHandler) Claim(c echo.Context) error {
	id, ok := courierID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	e, err := h.dispatcher.Claim(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Delivery claimed", "delivery": e})
}

func (h *CourierHandler) Complete(c echo.Context) error {
	id, ok := courierID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	if err := h.dispatcher.Complete(c.Request().Context(), id, c.Param("id")); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Delivery completed"})
}

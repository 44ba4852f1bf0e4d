package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"homecheff/internal/geo"
	"homecheff/internal/middleware"
	"homecheff/internal/orderHandler/models"
	"homecheff/internal/repository"
)

// UpdateLocation sets the caller's residence from coordinates or, failing
// that, by geocoding the address.
func (h *OrderHandler) UpdateLocation(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	var req models.LocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}

	ctx := c.Request().Context()
	address := strings.TrimSpace(req.Address)
	var point geo.Point
	switch {
	case req.Lat != nil && req.Lng != nil:
		point = geo.Point{Lat: *req.Lat, Lng: *req.Lng}
		if !point.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid coordinates"})
		}
	case address != "":
		var err error
		point, address, err = h.geocoder.Geocode(ctx, address)
		switch {
		case errors.Is(err, geo.ErrAddressUnknown):
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Address not found"})
		case errors.Is(err, geo.ErrNoAPIKey):
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Geocoding is not configured, send lat and lng"})
		case err != nil:
			h.logger.Error("Failed to geocode address", zap.Error(err))
			return c.JSON(http.StatusBadGateway, map[string]string{"message": "Geocoding failed"})
		}
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Address or coordinates are required"})
	}

	if err := h.store.UpdateUserLocation(ctx, p.UserID, address, point); err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "User not found"})
		}
		h.logger.Error("Failed to update location", zap.String("userID", p.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "Location updated",
		"address": address,
		"lat":     point.Lat,
		"lng":     point.Lng,
	})
}

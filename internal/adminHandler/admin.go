package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"homecheff/internal/adminHandler/models"
	"homecheff/internal/commission"
	"homecheff/internal/repository"
)

type Store interface {
	UpdateOverrides(ctx context.Context, affiliateID string, o commission.Overrides) error
}

type Earnings interface {
	Dispatch(ctx context.Context, affiliateID string) (repository.PayoutBatch, error)
}

type AdminHandler struct {
	store    Store
	earnings Earnings
	logger   *zap.Logger
}

func NewAdminHandler(store Store, earnings Earnings, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, earnings: earnings, logger: logger}
}

// pctScale matches the NUMERIC(6,3) override columns.
const pctScale = 3

func validPct(p *float64) bool {
	return p == nil || (*p >= 0 && *p <= 100)
}

// storablePct reports whether p fits the override columns without rounding.
func storablePct(p *float64) bool {
	return p == nil || decimal.NewFromFloat(*p).Exponent() >= -pctScale
}

// UpdateRates replaces the commission overrides of one affiliate.
func (h *AdminHandler) UpdateRates(c echo.Context) error {
	var req models.RatesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	for _, p := range []*float64{req.UserPct, req.BusinessPct, req.ParentUserPct, req.ParentBusinessPct} {
		if !validPct(p) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Percentages must be between 0 and 100"})
		}
		if !storablePct(p) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Percentages allow at most 3 decimal places"})
		}
	}

	id := c.Param("id")
	err := h.store.UpdateOverrides(c.Request().Context(), id, commission.Overrides{
		UserPct:           req.UserPct,
		BusinessPct:       req.BusinessPct,
		ParentUserPct:     req.ParentUserPct,
		ParentBusinessPct: req.ParentBusinessPct,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Affiliate not found"})
		}
		h.logger.Error("Failed to update rates", zap.String("affiliateID", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	h.logger.Info("Affiliate rates updated", zap.String("affiliateID", id))
	return c.JSON(http.StatusOK, map[string]string{"message": "Rates updated"})
}

// DispatchPayouts pays out every available payout of the affiliate.
func (h *AdminHandler) DispatchPayouts(c echo.Context) error {
	id := c.Param("id")
	batch, err := h.earnings.Dispatch(c.Request().Context(), id)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Affiliate not found"})
		}
		h.logger.Error("Failed to dispatch payouts", zap.String("affiliateID", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":     "Payouts dispatched",
		"count":       batch.Count,
		"total_cents": batch.TotalCents,
	})
}

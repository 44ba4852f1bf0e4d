package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"homecheff/internal/orderHandler/models"
	"homecheff/internal/payment"
	"homecheff/internal/repository"
)

// PaymentNotification is the Midtrans webhook. The reported status is
// confirmed with the gateway before anything is marked paid.
func (h *OrderHandler) PaymentNotification(c echo.Context) error {
	var req models.PaymentNotification
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}

	ctx := c.Request().Context()
	status, err := h.gateway.Status(ctx, req.OrderID)
	if err != nil {
		h.logger.Error("Failed to verify payment", zap.String("ref", req.OrderID), zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"message": "Failed to verify payment"})
	}
	if status == payment.StatusFailed && strings.HasPrefix(req.OrderID, repository.OrderRefPrefix) {
		return h.orderFailed(c, req.OrderID)
	}
	if status != payment.StatusSettled {
		return c.JSON(http.StatusOK, map[string]string{"message": "Payment not settled", "status": string(status)})
	}

	switch {
	case strings.HasPrefix(req.OrderID, repository.OrderRefPrefix):
		err = h.orderPaid(ctx, req.OrderID)
	case strings.HasPrefix(req.OrderID, repository.SubscriptionRefPrefix):
		err = h.subscriptionPaid(ctx, req.OrderID)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Unknown payment reference"})
	}

	switch {
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusOK, map[string]string{"message": "Payment already processed"})
	case repository.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Payment reference not found"})
	case err != nil:
		h.logger.Error("Failed to process payment", zap.String("ref", req.OrderID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Payment processed"})
}

// orderPaid opens the order's delivery to couriers and releases the
// commission recorded when it was placed.
func (h *OrderHandler) orderPaid(ctx context.Context, ref string) error {
	o, err := h.store.MarkOrderPaid(ctx, ref)
	if err != nil {
		return err
	}
	h.logger.Info("Order paid", zap.String("orderNumber", o.Number), zap.Int64("totalCents", o.TotalCents))

	if o.Mode == repository.ModeCourier {
		cand, err := h.store.CandidateByOrder(ctx, o.ID)
		if err != nil {
			h.logger.Error("Failed to load delivery candidate", zap.String("orderID", o.ID), zap.Error(err))
		} else if n, err := h.dispatcher.NotifyNearby(ctx, cand); err != nil {
			h.logger.Error("Failed to notify couriers", zap.String("candidateID", cand.ID), zap.Error(err))
		} else {
			h.logger.Info("Couriers notified", zap.String("candidateID", cand.ID), zap.Int("count", n))
		}
	}

	if _, err := h.earnings.Settle(ctx, ref); err != nil {
		h.logger.Error("Failed to settle commission", zap.String("ref", ref), zap.Error(err))
	}
	return nil
}

// orderFailed cancels an order whose payment expired or was denied. Its
// commission payouts stay pending and are never settled.
func (h *OrderHandler) orderFailed(c echo.Context, ref string) error {
	o, err := h.store.CancelOrder(c.Request().Context(), ref)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusOK, map[string]string{"message": "Payment already processed"})
	case repository.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Payment reference not found"})
	case err != nil:
		h.logger.Error("Failed to cancel order", zap.String("ref", ref), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	h.logger.Info("Order cancelled after failed payment", zap.String("orderNumber", o.Number))
	return c.JSON(http.StatusOK, map[string]string{"message": "Order cancelled"})
}

func (h *OrderHandler) subscriptionPaid(ctx context.Context, ref string) error {
	s, err := h.store.ActivateSubscription(ctx, ref, h.pricing.SubscriptionPeriod)
	if err != nil {
		return err
	}
	h.logger.Info("Subscription activated", zap.String("sellerID", s.SellerID), zap.Timep("until", s.PeriodEnd))

	if _, err := h.earnings.Settle(ctx, ref); err != nil {
		h.logger.Error("Failed to settle commission", zap.String("ref", ref), zap.Error(err))
	}
	return nil
}

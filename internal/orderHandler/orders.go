package handler

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"homecheff/internal/commission"
	"homecheff/internal/delivery"
	"homecheff/internal/geo"
	"homecheff/internal/middleware"
	"homecheff/internal/orderHandler/models"
	"homecheff/internal/repository"
	"homecheff/utils"
)

// PlatformFee is the platform's cut of the subtotal, rounded half-up to the cent.
func PlatformFee(subtotalCents int64, pct float64) int64 {
	if pct <= 0 {
		return 0
	}
	fee, err := commission.Commission(subtotalCents, commission.Percent(pct))
	if err != nil {
		return 0
	}
	return fee
}

// quantities merges repeated lines of the same product.
func quantities(items []models.OrderItemRequest) (map[string]int, []string, error) {
	q := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, nil, errors.New("every item needs a product and a positive quantity")
		}
		q[it.ProductID] += it.Quantity
	}
	ids := make([]string, 0, len(q))
	for id := range q {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return q, ids, nil
}

// CreateOrder prices the basket, stores the order and opens a Midtrans bank
// transfer charge for it.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	if req.SellerID == "" || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Seller and items are required"})
	}
	mode := repository.DeliveryMode(req.DeliveryMode)
	if !mode.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid delivery mode"})
	}
	qty, ids, err := quantities(req.Items)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}

	ctx := c.Request().Context()
	products, err := h.store.SellerProducts(ctx, req.SellerID, ids)
	if err != nil {
		h.logger.Error("Failed to load products", zap.String("sellerID", req.SellerID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	order := repository.Order{
		Number:   repository.NewReference(repository.OrderRefPrefix),
		BuyerID:  p.UserID,
		SellerID: req.SellerID,
		Mode:     mode,
	}
	for _, id := range ids {
		prod, found := products[id]
		if !found {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid product"})
		}
		order.Items = append(order.Items, repository.OrderItem{
			ProductID:      id,
			Title:          prod.Title,
			Quantity:       qty[id],
			UnitPriceCents: prod.PriceCents,
		})
		order.SubtotalCents += prod.PriceCents * int64(qty[id])
	}

	buyer, err := h.store.UserByID(ctx, p.UserID)
	if err != nil {
		h.logger.Error("Failed to load buyer", zap.String("buyerID", p.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	var cand *delivery.Candidate
	var distance *float64
	if mode == repository.ModeCourier {
		seller, err := h.store.SellerProfile(ctx, req.SellerID)
		if err != nil {
			if repository.IsNotFound(err) {
				return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid seller"})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
		}
		km, ok := geo.Distance(seller.Location, buyer.Location)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Seller and buyer locations are required for courier delivery"})
		}
		distance = &km
		order.DeliveryFeeCents = h.pricing.Delivery.Fee(km)
		cand = &delivery.Candidate{Seller: seller.Location, Buyer: buyer.Location, FeeCents: order.DeliveryFeeCents}
	}
	order.PlatformFeeCents = PlatformFee(order.SubtotalCents, h.pricing.PlatformFeePct)
	order.TotalCents = order.SubtotalCents + order.DeliveryFeeCents + order.PlatformFeeCents

	order, err = h.store.CreateOrder(ctx, order, cand)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, map[string]string{"message": "Insufficient stock"})
		}
		h.logger.Error("Failed to create order", zap.String("buyerID", p.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create order"})
	}

	charge, err := h.gateway.Charge(ctx, order.Number, order.TotalCents, fmt.Sprintf("HomeCheff order %s", order.Number))
	if err != nil {
		h.logger.Error("Failed to charge order", zap.String("orderNumber", order.Number), zap.Error(err))
		// the gateway never saw this reference, so no webhook will release the stock
		if _, err := h.store.CancelOrder(ctx, order.Number); err != nil {
			h.logger.Error("Failed to cancel unchargeable order", zap.String("orderNumber", order.Number), zap.Error(err))
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"message": "Payment gateway error"})
	}

	if order.PlatformFeeCents > 0 {
		ev := commission.Event{AmountCents: order.PlatformFeeCents, Type: commission.UserTransaction}
		if _, err := h.earnings.Record(ctx, p.UserID, ev, order.Number); err != nil {
			h.logger.Error("Failed to record commission", zap.String("orderNumber", order.Number), zap.Error(err))
		}
	}

	if err := h.mailer.Send(ctx, buyer.Email, buyer.Name, "Your HomeCheff order "+order.Number, utils.TemplateOrderPlaced, map[string]any{
		"Name":        buyer.Name,
		"OrderNumber": order.Number,
		"Total":       utils.FormatCents(order.TotalCents),
		"VANumbers":   charge.VANumbers,
	}); err != nil {
		h.logger.Warn("Failed to send order email", zap.String("orderNumber", order.Number), zap.Error(err))
	}

	return c.JSON(http.StatusCreated, models.CreateOrderResponse{
		Message:    "Order created, awaiting payment",
		Order:      order,
		DistanceKm: distance,
		VANumbers:  charge.VANumbers,
	})
}

// GetOrder is visible to the buyer and the seller of the order.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	o, err := h.store.OrderByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Order not found"})
		}
		h.logger.Error("Failed to load order", zap.String("orderID", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	if p.Role != repository.RoleAdmin && o.BuyerID != p.UserID && o.SellerID != p.UserID {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Order not found"})
	}
	return c.JSON(http.StatusOK, o)
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"homecheff/internal/catalog"
	"homecheff/internal/commission"
	"homecheff/internal/middleware"
	"homecheff/internal/payment"
	"homecheff/internal/repository"
	"homecheff/internal/sellerHandler/models"
)

type Store interface {
	CreateProduct(ctx context.Context, p repository.Product) (repository.Product, error)
	SellerProfile(ctx context.Context, userID string) (repository.SellerProfile, error)
	SellerDashboard(ctx context.Context, sellerID string) (repository.SellerDashboard, error)
	CreateSubscription(ctx context.Context, sellerID, paymentRef string, amountCents int64) (repository.Subscription, error)
	CancelSubscription(ctx context.Context, paymentRef string) error
}

type Earnings interface {
	Record(ctx context.Context, referredUserID string, ev commission.Event, sourceRef string) (*commission.Cascade, error)
}

type SellerHandler struct {
	store                  Store
	gateway                payment.Gateway
	earnings               Earnings
	subscriptionPriceCents int64
	logger                 *zap.Logger
}

func NewSellerHandler(store Store, gateway payment.Gateway, earnings Earnings, subscriptionPriceCents int64, logger *zap.Logger) *SellerHandler {
	return &SellerHandler{
		store:                  store,
		gateway:                gateway,
		earnings:               earnings,
		subscriptionPriceCents: subscriptionPriceCents,
		logger:                 logger,
	}
}

// CreateProduct lists a product. A product may carry a recipe or a growing
// log, never both.
func (h *SellerHandler) CreateProduct(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	var req models.ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.PriceCents <= 0 || req.Stock < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Title, a positive price and a non-negative stock are required"})
	}

	product := repository.Product{
		SellerID:    p.UserID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Recipe:      req.Recipe,
		GrowingLog:  req.GrowingLog,
	}
	if _, err := product.Detail(); err != nil {
		if errors.Is(err, catalog.ErrAmbiguousDetail) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "A product has either a recipe or a growing log"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid recipe or growing log"})
	}

	created, err := h.store.CreateProduct(c.Request().Context(), product)
	if err != nil {
		h.logger.Error("Failed to create product", zap.String("sellerID", p.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create product"})
	}
	d, err := created.Detail()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	return c.JSON(http.StatusCreated, catalog.Wrap(d))
}

func (h *SellerHandler) Dashboard(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	ctx := c.Request().Context()
	profile, err := h.store.SellerProfile(ctx, p.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Seller profile not found"})
		}
		h.logger.Error("Failed to load seller profile", zap.String("sellerID", p.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	stats, err := h.store.SellerDashboard(ctx, p.UserID)
	if err != nil {
		h.logger.Error("Failed to load seller dashboard", zap.String("sellerID", p.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"display_name":       profile.DisplayName,
		"location":           profile.Location,
		"subscription_until": profile.SubscriptionUntil,
		"stats":              stats,
	})
}

// Subscribe opens a bank transfer charge for one subscription period. The
// referring affiliate earns a business commission on it once paid.
func (h *SellerHandler) Subscribe(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}

	ctx := c.Request().Context()
	ref := repository.NewReference(repository.SubscriptionRefPrefix)
	sub, err := h.store.CreateSubscription(ctx, p.UserID, ref, h.subscriptionPriceCents)
	if err != nil {
		h.logger.Error("Failed to create subscription", zap.String("sellerID", p.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to create subscription"})
	}

	charge, err := h.gateway.Charge(ctx, sub.PaymentRef, sub.AmountCents, fmt.Sprintf("HomeCheff seller subscription %s", sub.PaymentRef))
	if err != nil {
		h.logger.Error("Failed to charge subscription", zap.String("ref", sub.PaymentRef), zap.Error(err))
		if err := h.store.CancelSubscription(ctx, sub.PaymentRef); err != nil {
			h.logger.Error("Failed to cancel unchargeable subscription", zap.String("ref", sub.PaymentRef), zap.Error(err))
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"message": "Payment gateway error"})
	}

	ev := commission.Event{AmountCents: sub.AmountCents, Type: commission.BusinessSubscription}
	if _, err := h.earnings.Record(ctx, p.UserID, ev, sub.PaymentRef); err != nil {
		h.logger.Error("Failed to record commission", zap.String("ref", sub.PaymentRef), zap.Error(err))
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"message":      "Subscription created, awaiting payment",
		"payment_ref":  sub.PaymentRef,
		"amount_cents": sub.AmountCents,
		"va_numbers":   charge.VANumbers,
	})
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"homecheff/internal/affiliateHandler/models"
	"homecheff/internal/middleware"
	"homecheff/internal/repository"
	"homecheff/utils"
)

const recentPayouts = 20

type Store interface {
	AffiliateByUser(ctx context.Context, userID string) (repository.Affiliate, error)
	AffiliateSummary(ctx context.Context, affiliateID string) (repository.AffiliateSummary, error)
	RecentPayouts(ctx context.Context, affiliateID string, limit int) ([]repository.PayoutRecord, error)
	RegisterUser(ctx context.Context, reg repository.Registration) (repository.User, error)
}

type AffiliateHandler struct {
	store  Store
	logger *zap.Logger
}

func NewAffiliateHandler(store Store, logger *zap.Logger) *AffiliateHandler {
	return &AffiliateHandler{store: store, logger: logger}
}

// affiliate loads the caller's affiliate record. When ok is false the error
// response has already been written and err is its result.
func (h *AffiliateHandler) affiliate(c echo.Context) (a repository.Affiliate, ok bool, err error) {
	p, found := middleware.PrincipalFrom(c)
	if !found {
		return a, false, c.JSON(http.StatusUnauthorized, map[string]string{"message": "Missing token"})
	}
	a, err = h.store.AffiliateByUser(c.Request().Context(), p.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return a, false, c.JSON(http.StatusNotFound, map[string]string{"message": "Affiliate not found"})
		}
		h.logger.Error("Failed to load affiliate", zap.String("userID", p.UserID), zap.Error(err))
		return a, false, c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	return a, true, nil
}

// Dashboard shows referral counts, balances per payout status and the most
// recent payouts.
func (h *AffiliateHandler) Dashboard(c echo.Context) error {
	a, ok, err := h.affiliate(c)
	if !ok {
		return err
	}

	ctx := c.Request().Context()
	summary, err := h.store.AffiliateSummary(ctx, a.ID)
	if err != nil {
		h.logger.Error("Failed to load affiliate summary", zap.String("affiliateID", a.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	payouts, err := h.store.RecentPayouts(ctx, a.ID, recentPayouts)
	if err != nil {
		h.logger.Error("Failed to load payouts", zap.String("affiliateID", a.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	if payouts == nil {
		payouts = []repository.PayoutRecord{}
	}

	return c.JSON(http.StatusOK, models.DashboardResponse{AffiliateSummary: summary, RecentPayouts: payouts})
}

// CreateSubAffiliate registers an affiliate account under the caller. The
// tree is two levels deep: sub-affiliates cannot recruit further.
func (h *AffiliateHandler) CreateSubAffiliate(c echo.Context) error {
	a, ok, err := h.affiliate(c)
	if !ok {
		return err
	}
	if a.ParentID != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"message": "Sub-affiliates cannot create sub-affiliates"})
	}

	var req models.SubAffiliateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "All fields are required"})
	}
	if !utils.ValidateEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid email format"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Password must be at least 8 characters long"})
	}

	hashPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	ctx := c.Request().Context()
	parentID := a.ID
	user, err := h.store.RegisterUser(ctx, repository.Registration{
		User: repository.User{
			Name:         req.Name,
			Email:        strings.ToLower(req.Email),
			PasswordHash: string(hashPassword),
			Role:         repository.RoleAffiliate,
		},
		ParentAffiliateID: &parentID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email already registered"})
		}
		h.logger.Error("Failed to create sub-affiliate", zap.String("parentID", a.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	resp := map[string]string{"message": "Sub-affiliate created", "user_id": user.ID}
	if sub, err := h.store.AffiliateByUser(ctx, user.ID); err == nil {
		resp["referral_code"] = sub.Code
	}
	return c.JSON(http.StatusCreated, resp)
}

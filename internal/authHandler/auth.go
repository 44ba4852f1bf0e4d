package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"homecheff/internal/authHandler/models"
	"homecheff/internal/middleware"
	"homecheff/internal/repository"
	"homecheff/utils"
)

type Store interface {
	RegisterUser(ctx context.Context, reg repository.Registration) (repository.User, error)
	UserByEmail(ctx context.Context, email string) (repository.User, error)
	AffiliateByUser(ctx context.Context, userID string) (repository.Affiliate, error)
}

type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, tmpl string, data any) error
}

type AuthHandler struct {
	store  Store
	mailer Mailer
	secret string
	ttl    time.Duration
	logger *zap.Logger
}

func NewAuthHandler(store Store, mailer Mailer, secret string, ttl time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, mailer: mailer, secret: secret, ttl: ttl, logger: logger}
}

// Register creates a buyer, seller, courier or affiliate account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}

	if req.Name == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "All fields are required"})
	}

	// Validate email format
	if !utils.ValidateEmail(req.Email) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid email format"})
	}
	email := strings.ToLower(req.Email)

	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Password must be at least 8 characters long"})
	}

	role := repository.Role(strings.ToLower(req.Role))
	if !role.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid role"})
	}

	hashPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	ctx := c.Request().Context()
	user, err := h.store.RegisterUser(ctx, repository.Registration{
		User: repository.User{
			Name:         req.Name,
			Email:        email,
			PasswordHash: string(hashPassword),
			Role:         role,
		},
		ReferralCode: strings.ToUpper(strings.TrimSpace(req.ReferralCode)),
	})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Email already registered"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Unknown referral code"})
	case err != nil:
		h.logger.Error("Failed to register user", zap.String("email", email), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	resp := models.RegisterResponse{
		Message: fmt.Sprintf("User %s registered successfully", user.Name),
		ID:      user.ID,
		Email:   user.Email,
		Role:    string(user.Role),
	}
	if role == repository.RoleAffiliate {
		if a, err := h.store.AffiliateByUser(ctx, user.ID); err == nil {
			resp.ReferralCode = a.Code
		}
	}

	if err := h.mailer.Send(ctx, user.Email, user.Name, "Welcome to HomeCheff", utils.TemplateWelcome, map[string]any{
		"Name":  user.Name,
		"Email": user.Email,
		"Role":  string(user.Role),
		"Code":  resp.ReferralCode,
	}); err != nil {
		h.logger.Warn("Failed to send welcome email", zap.String("email", user.Email), zap.Error(err))
	}

	return c.JSON(http.StatusOK, resp)
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid Request"})
	}

	user, err := h.store.UserByEmail(c.Request().Context(), strings.ToLower(req.Email))
	if err != nil {
		if !repository.IsNotFound(err) {
			h.logger.Error("Failed to load user", zap.Error(err))
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid email or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid email or password"})
	}

	tokenString, err := middleware.IssueToken(h.secret, h.ttl, user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to generate token"})
	}

	return c.JSON(http.StatusOK, models.LoginResponse{
		Token: tokenString,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	})
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"homecheff/config"
	"homecheff/config/database"
	adminHandler "homecheff/internal/adminHandler"
	affiliateHandler "homecheff/internal/affiliateHandler"
	authHandler "homecheff/internal/authHandler"
	"homecheff/internal/cache"
	"homecheff/internal/chat"
	chatHandler "homecheff/internal/chatHandler"
	courierHandler "homecheff/internal/courierHandler"
	"homecheff/internal/delivery"
	"homecheff/internal/dispatch"
	"homecheff/internal/earnings"
	"homecheff/internal/geo"
	"homecheff/internal/logger"
	"homecheff/internal/middleware"
	"homecheff/internal/notify"
	orderHandler "homecheff/internal/orderHandler"
	"homecheff/internal/payment"
	"homecheff/internal/repository"
	sellerHandler "homecheff/internal/sellerHandler"
	"homecheff/internal/tracing"
	"homecheff/utils"
)

const subscriptionPeriod = 30 * 24 * time.Hour

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Env, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer log.Sync()
		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, log)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	if err := database.Migrate(cfg.DB.URL, false, log); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	pool, err := database.New(ctx, cfg.DB.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	telegram, err := notify.NewTelegram(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}

	repo := repository.New(pool)
	mailer := utils.NewMailer(cfg.Brevo.APIKey, cfg.Brevo.SenderName, cfg.Brevo.SenderEmail, log)
	gateway := payment.NewMidtrans(cfg.Midtrans.ServerKey, cfg.Midtrans.Environment())
	broker := chat.NewBroker(redisClient, log)

	dispatcher := dispatch.NewService(repo, cache.NewPositions(redisClient, cfg.Delivery.PositionTTL), telegram, cfg.Delivery.Policy(), log)
	ledger := earnings.NewService(repo, mailer, cfg.Commission.Rates(), log)
	chats := chat.NewService(repo, broker, log)

	auth := authHandler.NewAuthHandler(repo, mailer, cfg.JWT.Secret, cfg.JWT.TTL, log)
	orders := orderHandler.NewOrderHandler(repo, gateway, ledger, dispatcher, geo.NewGeocoder(cfg.GoogleMaps.APIKey), mailer,
		orderHandler.Pricing{
			Delivery:           delivery.FeeSchedule{BaseCents: cfg.Delivery.BaseFeeCents, RatePerKmCents: cfg.Delivery.RatePerKmCents},
			PlatformFeePct:     cfg.Commission.PlatformFeePct,
			SubscriptionPeriod: subscriptionPeriod,
		}, log)
	couriers := courierHandler.NewCourierHandler(dispatcher, log)
	sellers := sellerHandler.NewSellerHandler(repo, gateway, ledger, cfg.Commission.SubscriptionPriceCents, log)
	affiliates := affiliateHandler.NewAffiliateHandler(repo, log)
	admin := adminHandler.NewAdminHandler(repo, ledger, log)
	chatAPI := chatHandler.NewChatHandler(chats, broker, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(log))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// public routes
	e.POST("/auth/register", auth.Register)
	e.POST("/auth/login", auth.Login)
	e.GET("/products/:id", orders.GetProduct)
	e.POST("/payments/notification", orders.PaymentNotification)

	// everything below needs a valid token
	api := e.Group("", middleware.JWT(cfg.JWT.Secret))
	api.PUT("/me/location", orders.UpdateLocation)
	api.POST("/orders", orders.CreateOrder, middleware.RequireRole(repository.RoleBuyer))
	api.GET("/orders/:id", orders.GetOrder)

	api.GET("/conversations/:id/messages", chatAPI.Messages)
	api.POST("/conversations/:id/messages", chatAPI.PostMessage)
	api.GET("/conversations/:id/ws", chatAPI.Socket)

	courierGroup := api.Group("/courier", middleware.RequireRole(repository.RoleCourier))
	courierGroup.PUT("/status", couriers.SetStatus)
	courierGroup.PUT("/settings", couriers.UpdateSettings)
	courierGroup.PUT("/location", couriers.ReportPosition)
	courierGroup.GET("/deliveries", couriers.Deliveries)
	courierGroup.POST("/deliveries/:id/claim", couriers.Claim)
	courierGroup.POST("/deliveries/:id/complete", couriers.Complete)

	sellerGroup := api.Group("/seller", middleware.RequireRole(repository.RoleSeller))
	sellerGroup.POST("/products", sellers.CreateProduct)
	sellerGroup.GET("/dashboard", sellers.Dashboard)
	sellerGroup.POST("/subscription", sellers.Subscribe)

	affiliateGroup := api.Group("/affiliate", middleware.RequireRole(repository.RoleAffiliate))
	affiliateGroup.GET("/dashboard", affiliates.Dashboard)
	affiliateGroup.POST("/sub-affiliates", affiliates.CreateSubAffiliate)

	adminGroup := api.Group("/admin", middleware.RequireRole(repository.RoleAdmin))
	adminGroup.PUT("/affiliates/:id/rates", admin.UpdateRates)
	adminGroup.POST("/affiliates/:id/payouts", admin.DispatchPayouts)

	errc := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Error("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("Request", fields...)
			return nil
		},
	})
}

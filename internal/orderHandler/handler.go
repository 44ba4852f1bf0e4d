package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"homecheff/internal/commission"
	"homecheff/internal/delivery"
	"homecheff/internal/geo"
	"homecheff/internal/payment"
	"homecheff/internal/repository"
)

type Store interface {
	UserByID(ctx context.Context, id string) (repository.User, error)
	UpdateUserLocation(ctx context.Context, userID, address string, p geo.Point) error
	SellerProfile(ctx context.Context, userID string) (repository.SellerProfile, error)
	ProductByID(ctx context.Context, id string) (repository.Product, error)
	SellerProducts(ctx context.Context, sellerID string, ids []string) (map[string]repository.Product, error)
	CreateOrder(ctx context.Context, o repository.Order, cand *delivery.Candidate) (repository.Order, error)
	OrderByID(ctx context.Context, id string) (repository.Order, error)
	MarkOrderPaid(ctx context.Context, orderNumber string) (repository.Order, error)
	CancelOrder(ctx context.Context, orderNumber string) (repository.Order, error)
	CandidateByOrder(ctx context.Context, orderID string) (delivery.Candidate, error)
	ActivateSubscription(ctx context.Context, paymentRef string, period time.Duration) (repository.Subscription, error)
}

type Earnings interface {
	Record(ctx context.Context, referredUserID string, ev commission.Event, sourceRef string) (*commission.Cascade, error)
	Settle(ctx context.Context, sourceRef string) (repository.PayoutBatch, error)
}

type Dispatcher interface {
	NotifyNearby(ctx context.Context, cand delivery.Candidate) (int, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, string, error)
}

type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, tmpl string, data any) error
}

// Pricing holds the fee settings applied to every order.
type Pricing struct {
	Delivery       delivery.FeeSchedule
	PlatformFeePct float64
	// SubscriptionPeriod is how long one paid seller subscription lasts.
	SubscriptionPeriod time.Duration
}

type OrderHandler struct {
	store      Store
	gateway    payment.Gateway
	earnings   Earnings
	dispatcher Dispatcher
	geocoder   Geocoder
	mailer     Mailer
	pricing    Pricing
	logger     *zap.Logger
}

func NewOrderHandler(store Store, gateway payment.Gateway, earnings Earnings, dispatcher Dispatcher,
	geocoder Geocoder, mailer Mailer, pricing Pricing, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		store:      store,
		gateway:    gateway,
		earnings:   earnings,
		dispatcher: dispatcher,
		geocoder:   geocoder,
		mailer:     mailer,
		pricing:    pricing,
		logger:     logger,
	}
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"homecheff/internal/commission"
	"homecheff/internal/delivery"
	"homecheff/internal/geo"
	"homecheff/internal/middleware"
	"homecheff/internal/payment"
	"homecheff/internal/repository"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) UserByID(ctx context.Context, id string) (repository.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.User), args.Error(1)
}

func (m *MockStore) UpdateUserLocation(ctx context.Context, userID, address string, p geo.Point) error {
	return m.Called(ctx, userID, address, p).Error(0)
}

func (m *MockStore) SellerProfile(ctx context.Context, userID string) (repository.SellerProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(repository.SellerProfile), args.Error(1)
}

func (m *MockStore) ProductByID(ctx context.Context, id string) (repository.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Product), args.Error(1)
}

func (m *MockStore) SellerProducts(ctx context.Context, sellerID string, ids []string) (map[string]repository.Product, error) {
	args := m.Called(ctx, sellerID, ids)
	products, _ := args.Get(0).(map[string]repository.Product)
	return products, args.Error(1)
}

func (m *MockStore) CreateOrder(ctx context.Context, o repository.Order, cand *delivery.Candidate) (repository.Order, error) {
	args := m.Called(ctx, o, cand)
	return args.Get(0).(repository.Order), args.Error(1)
}

func (m *MockStore) OrderByID(ctx context.Context, id string) (repository.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Order), args.Error(1)
}

func (m *MockStore) MarkOrderPaid(ctx context.Context, orderNumber string) (repository.Order, error) {
	args := m.Called(ctx, orderNumber)
	return args.Get(0).(repository.Order), args.Error(1)
}

func (m *MockStore) CancelOrder(ctx context.Context, orderNumber string) (repository.Order, error) {
	args := m.Called(ctx, orderNumber)
	return args.Get(0).(repository.Order), args.Error(1)
}

func (m *MockStore) CandidateByOrder(ctx context.Context, orderID string) (delivery.Candidate, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(delivery.Candidate), args.Error(1)
}

func (m *MockStore) ActivateSubscription(ctx context.Context, paymentRef string, period time.Duration) (repository.Subscription, error) {
	args := m.Called(ctx, paymentRef, period)
	return args.Get(0).(repository.Subscription), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, ref string, amountCents int64, description string) (payment.Charge, error) {
	args := m.Called(ctx, ref, amountCents, description)
	return args.Get(0).(payment.Charge), args.Error(1)
}

func (m *MockGateway) Status(ctx context.Context, ref string) (payment.Status, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(payment.Status), args.Error(1)
}

type MockEarnings struct {
	mock.Mock
}

func (m *MockEarnings) Record(ctx context.Context, referredUserID string, ev commission.Event, sourceRef string) (*commission.Cascade, error) {
	args := m.Called(ctx, referredUserID, ev, sourceRef)
	c, _ := args.Get(0).(*commission.Cascade)
	return c, args.Error(1)
}

func (m *MockEarnings) Settle(ctx context.Context, sourceRef string) (repository.PayoutBatch, error) {
	args := m.Called(ctx, sourceRef)
	return args.Get(0).(repository.PayoutBatch), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) NotifyNearby(ctx context.Context, cand delivery.Candidate) (int, error) {
	args := m.Called(ctx, cand)
	return args.Int(0), args.Error(1)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (geo.Point, string, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(geo.Point), args.String(1), args.Error(2)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, toEmail, toName, subject, tmpl string, data any) error {
	return m.Called(ctx, toEmail, toName, subject, tmpl, data).Error(0)
}

type mocks struct {
	store      *MockStore
	gateway    *MockGateway
	earnings   *MockEarnings
	dispatcher *MockDispatcher
	geocoder   *MockGeocoder
	mailer     *MockMailer
}

var testPricing = Pricing{
	Delivery:           delivery.FeeSchedule{BaseCents: 250, RatePerKmCents: 50},
	PlatformFeePct:     12,
	SubscriptionPeriod: 30 * 24 * time.Hour,
}

func newHandler() (*OrderHandler, mocks) {
	m := mocks{
		store:      new(MockStore),
		gateway:    new(MockGateway),
		earnings:   new(MockEarnings),
		dispatcher: new(MockDispatcher),
		geocoder:   new(MockGeocoder),
		mailer:     new(MockMailer),
	}
	return NewOrderHandler(m.store, m.gateway, m.earnings, m.dispatcher, m.geocoder, m.mailer, testPricing, zap.NewNop()), m
}

func newContext(method, path string, body any, p *middleware.Principal) (echo.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		requestBody, _ := json.Marshal(body)
		reader = bytes.NewReader(requestBody)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if p != nil {
		middleware.WithPrincipal(c, *p)
	}
	return c, rec
}

func decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	response := map[string]interface{}{}
	json.Unmarshal(rec.Body.Bytes(), &response)
	return response
}

var buyer = &middleware.Principal{UserID: "buyer-1", Role: repository.RoleBuyer}

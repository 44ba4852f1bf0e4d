package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homecheff/internal/delivery"
	"homecheff/internal/dispatch"
	"homecheff/internal/geo"
	"homecheff/internal/middleware"
	"homecheff/internal/repository"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Available(ctx context.Context, courierID string) ([]delivery.Eligible, error) {
	args := m.Called(ctx, courierID)
	list, _ := args.Get(0).([]delivery.Eligible)
	return list, args.Error(1)
}

func (m *MockDispatcher) Claim(ctx context.Context, courierID, candidateID string) (delivery.Eligible, error) {
	args := m.Called(ctx, courierID, candidateID)
	return args.Get(0).(delivery.Eligible), args.Error(1)
}

func (m *MockDispatcher) Complete(ctx context.Context, courierID, candidateID string) error {
	return m.Called(ctx, courierID, candidateID).Error(0)
}

func (m *MockDispatcher) SetOnline(ctx context.Context, courierID string, online bool) error {
	return m.Called(ctx, courierID, online).Error(0)
}

func (m *MockDispatcher) UpdateSettings(ctx context.Context, courierID string, settings repository.CourierSettings) error {
	return m.Called(ctx, courierID, settings).Error(0)
}

func (m *MockDispatcher) ReportPosition(ctx context.Context, courierID string, p geo.Point) error {
	return m.Called(ctx, courierID, p).Error(0)
}

var courier = middleware.Principal{UserID: "c1", Role: repository.RoleCourier}

func newContext(method string, body any, param string) (echo.Context, *httptest.ResponseRecorder) {
	requestBody, _ := json.Marshal(body)
	req := httptest.NewRequest(method, "/courier", bytes.NewReader(requestBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	middleware.WithPrincipal(c, courier)
	if param != "" {
		c.SetParamNames("id")
		c.SetParamValues(param)
	}
	return c, rec
}

func message(rec *httptest.ResponseRecorder) string {
	response := map[string]interface{}{}
	json.Unmarshal(rec.Body.Bytes(), &response)
	s, _ := response["message"].(string)
	return s
}

func TestClaim(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectedCode int
		expectedMsg  string
	}{
		{name: "Claimed", expectedCode: http.StatusOK, expectedMsg: "Delivery claimed"},
		{name: "Taken", err: repository.ErrConflict, expectedCode: http.StatusConflict, expectedMsg: "Delivery is no longer available"},
		{name: "Out of range", err: dispatch.ErrNotEligible, expectedCode: http.StatusForbidden, expectedMsg: "Delivery is outside your range"},
		{name: "Unknown courier", err: repository.ErrNotFound, expectedCode: http.StatusNotFound, expectedMsg: "Not found"},
		{name: "Database down", err: errors.New("boom"), expectedCode: http.StatusInternalServerError, expectedMsg: "Internal Server Error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := new(MockDispatcher)
			d.On("Claim", mock.Anything, "c1", "cand-1").Return(delivery.Eligible{EstimatedMinutes: 12}, tc.err)
			h := NewCourierHandler(d, zap.NewNop())

			c, rec := newContext(http.MethodPost, nil, "cand-1")
			require.NoError(t, h.Claim(c))
			assert.Equal(t, tc.expectedCode, rec.Code)
			assert.Equal(t, tc.expectedMsg, message(rec))
		})
	}
}

func TestDeliveries(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Available", mock.Anything, "c1").Return([]delivery.Eligible{
		{Candidate: delivery.Candidate{ID: "cand-1"}, PickupKm: 1.2, DropoffKm: 2.3, EstimatedMinutes: 18},
	}, nil)
	h := NewCourierHandler(d, zap.NewNop())

	c, rec := newContext(http.MethodGet, nil, "")
	require.NoError(t, h.Deliveries(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Deliveries []delivery.Eligible `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Deliveries, 1)
	assert.Equal(t, 18, response.Deliveries[0].EstimatedMinutes)
}

func TestSetStatusAndSettings(t *testing.T) {
	d := new(MockDispatcher)
	d.On("SetOnline", mock.Anything, "c1", true).Return(nil)
	d.On("UpdateSettings", mock.Anything, "c1", repository.CourierSettings{MaxDistanceKm: 0}).Return(dispatch.ErrInvalidRadius)
	chat := int64(42)
	d.On("UpdateSettings", mock.Anything, "c1", repository.CourierSettings{
		GPSTracking: true, MaxDistanceKm: 7.5, Home: &geo.Point{Lat: 52, Lng: 4}, TelegramChatID: &chat,
	}).Return(nil)
	h := NewCourierHandler(d, zap.NewNop())

	c, rec := newContext(http.MethodPut, map[string]bool{"online": true}, "")
	require.NoError(t, h.SetStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPut, map[string]any{"max_distance_km": 0}, "")
	require.NoError(t, h.UpdateSettings(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Max distance must be positive", message(rec))

	c, rec = newContext(http.MethodPut, map[string]any{
		"gps_tracking": true, "max_distance_km": 7.5, "home": map[string]float64{"lat": 52, "lng": 4}, "telegram_chat_id": 42,
	}, "")
	require.NoError(t, h.UpdateSettings(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportPosition(t *testing.T) {
	d := new(MockDispatcher)
	d.On("ReportPosition", mock.Anything, "c1", geo.Point{Lat: 52.1, Lng: 4.3}).Return(nil)
	d.On("ReportPosition", mock.Anything, "c1", geo.Point{}).Return(dispatch.ErrInvalidPosition)
	h := NewCourierHandler(d, zap.NewNop())

	c, rec := newContext(http.MethodPut, map[string]float64{"lat": 52.1, "lng": 4.3}, "")
	require.NoError(t, h.ReportPosition(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newContext(http.MethodPut, map[string]float64{}, "")
	require.NoError(t, h.ReportPosition(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplete(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Complete", mock.Anything, "c1", "cand-1").Return(repository.ErrConflict)
	h := NewCourierHandler(d, zap.NewNop())

	c, rec := newContext(http.MethodPost, nil, "cand-1")
	require.NoError(t, h.Complete(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

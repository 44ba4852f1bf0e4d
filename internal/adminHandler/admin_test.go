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

	"homecheff/internal/commission"
	"homecheff/internal/repository"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpdateOverrides(ctx context.Context, affiliateID string, o commission.Overrides) error {
	return m.Called(ctx, affiliateID, o).Error(0)
}

type MockEarnings struct {
	mock.Mock
}

func (m *MockEarnings) Dispatch(ctx context.Context, affiliateID string) (repository.PayoutBatch, error) {
	args := m.Called(ctx, affiliateID)
	return args.Get(0).(repository.PayoutBatch), args.Error(1)
}

func newContext(method string, body any) (echo.Context, *httptest.ResponseRecorder) {
	requestBody, _ := json.Marshal(body)
	req := httptest.NewRequest(method, "/admin/affiliates/aff-1", bytes.NewReader(requestBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("aff-1")
	return c, rec
}

func TestUpdateRates(t *testing.T) {
	pct := func(v float64) *float64 { return &v }

	testCases := []struct {
		name         string
		body         map[string]interface{}
		storeErr     error
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "Custom user rate, default business",
			body:         map[string]interface{}{"user_pct": 25.5, "business_pct": nil, "parent_user_pct": 0},
			expectedCode: http.StatusOK,
			expectedMsg:  "Rates updated",
		},
		{
			name:         "Out of range",
			body:         map[string]interface{}{"user_pct": 120},
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Percentages must be between 0 and 100",
		},
		{
			name:         "Three decimals fit",
			body:         map[string]interface{}{"parent_business_pct": 12.345},
			expectedCode: http.StatusOK,
			expectedMsg:  "Rates updated",
		},
		{
			name:         "Too precise",
			body:         map[string]interface{}{"user_pct": 33.3333},
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Percentages allow at most 3 decimal places",
		},
		{
			name:         "Unknown affiliate",
			body:         map[string]interface{}{},
			storeErr:     repository.ErrNotFound,
			expectedCode: http.StatusNotFound,
			expectedMsg:  "Affiliate not found",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("UpdateOverrides", mock.Anything, "aff-1", mock.Anything).Return(tc.storeErr)
			h := NewAdminHandler(store, new(MockEarnings), zap.NewNop())

			c, rec := newContext(http.MethodPut, tc.body)
			require.NoError(t, h.UpdateRates(c))
			assert.Equal(t, tc.expectedCode, rec.Code)

			response := map[string]interface{}{}
			json.Unmarshal(rec.Body.Bytes(), &response)
			assert.Equal(t, tc.expectedMsg, response["message"])
		})
	}

	store := new(MockStore)
	store.On("UpdateOverrides", mock.Anything, "aff-1", commission.Overrides{UserPct: pct(25.5), ParentUserPct: pct(0)}).Return(nil)
	h := NewAdminHandler(store, new(MockEarnings), zap.NewNop())
	c, _ := newContext(http.MethodPut, testCases[0].body)
	require.NoError(t, h.UpdateRates(c))
	store.AssertExpectations(t)
}

func TestDispatchPayouts(t *testing.T) {
	testCases := []struct {
		name         string
		batch        repository.PayoutBatch
		err          error
		expectedCode int
	}{
		{name: "Paid", batch: repository.PayoutBatch{Count: 2, TotalCents: 4500}, expectedCode: http.StatusOK},
		{name: "Unknown affiliate", err: repository.ErrNotFound, expectedCode: http.StatusNotFound},
		{name: "Failure", err: errors.New("db down"), expectedCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			earnings := new(MockEarnings)
			earnings.On("Dispatch", mock.Anything, "aff-1").Return(tc.batch, tc.err)
			h := NewAdminHandler(new(MockStore), earnings, zap.NewNop())

			c, rec := newContext(http.MethodPost, nil)
			require.NoError(t, h.DispatchPayouts(c))
			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.err == nil {
				response := map[string]interface{}{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
				assert.EqualValues(t, 4500, response["total_cents"])
			}
		})
	}
}

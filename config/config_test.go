package config

import (
	"testing"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecheff/internal/commission"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PCT", "")
	t.Setenv("MINUTES_PER_KM", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("NEAREST_FIRST", "")
	t.Setenv("DEFAULT_USER_PCT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12.0, cfg.Commission.PlatformFeePct)
	assert.Equal(t, 5.0, cfg.Delivery.MinutesPerKm)
	assert.Equal(t, 72*time.Hour, cfg.JWT.TTL)
	assert.False(t, cfg.Delivery.Policy().NearestFirst)
	assert.True(t, cfg.Commission.Rates().User.Equal(commission.DefaultRates().User))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MINUTES_PER_KM", "3.5")
	t.Setenv("NEAREST_FIRST", "true")
	t.Setenv("MIDTRANS_PRODUCTION", "1")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3.5, cfg.Delivery.Policy().MinutesPerKm)
	assert.True(t, cfg.Delivery.Policy().NearestFirst)
	assert.Equal(t, midtrans.Production, cfg.Midtrans.Environment())
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PCT", "twelve")
	_, err := Load()
	assert.ErrorContains(t, err, "PLATFORM_FEE_PCT")
}

func TestLoad_OutOfRange(t *testing.T) {
	testCases := []struct {
		name        string
		key, value  string
		expectedErr string
	}{
		{name: "Zero subscription price", key: "SUBSCRIPTION_PRICE_CENTS", value: "0", expectedErr: "SUBSCRIPTION_PRICE_CENTS"},
		{name: "Negative subscription price", key: "SUBSCRIPTION_PRICE_CENTS", value: "-5", expectedErr: "SUBSCRIPTION_PRICE_CENTS"},
		{name: "Platform fee above 100", key: "PLATFORM_FEE_PCT", value: "150", expectedErr: "PLATFORM_FEE_PCT"},
		{name: "Negative platform fee", key: "PLATFORM_FEE_PCT", value: "-1", expectedErr: "PLATFORM_FEE_PCT"},
		{name: "Default rate above 100", key: "DEFAULT_BUSINESS_PCT", value: "101", expectedErr: "DEFAULT_BUSINESS_PCT"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.ErrorContains(t, err, tc.expectedErr)
		})
	}
}

func TestLoad_ZeroPlatformFeeAllowed(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PCT", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Commission.PlatformFeePct)
}

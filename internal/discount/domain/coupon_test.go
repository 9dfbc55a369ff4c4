package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCoupon_Usable(t *testing.T) {
	now := time.Now()
	coupon := &Coupon{
		Code:           "SUMMER10",
		PercentOff:     10,
		ExpiresAt:      now.Add(time.Hour),
		MaxRedemptions: 2,
	}

	require.NoError(t, coupon.Usable(now))

	coupon.Redeemed = 2
	require.ErrorIs(t, coupon.Usable(now), ErrCouponExhausted)

	coupon.Redeemed = 0
	coupon.ExpiresAt = now.Add(-time.Minute)
	require.ErrorIs(t, coupon.Usable(now), ErrCouponExpired)
}

func TestCoupon_Apply(t *testing.T) {
	coupon := &Coupon{PercentOff: 10}

	discounted := coupon.Apply(decimal.RequireFromString("25.00"))
	require.True(t, discounted.Equal(decimal.RequireFromString("22.50")), "got %s", discounted)

	// Rounds to cents.
	coupon.PercentOff = 33
	discounted = coupon.Apply(decimal.RequireFromString("9.99"))
	require.True(t, discounted.Equal(decimal.RequireFromString("6.69")), "got %s", discounted)
}

package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCouponExpired   = errors.New("coupon expired")
	ErrCouponExhausted = errors.New("coupon redemption limit reached")
)

// Coupon is a percentage discount with an expiry and a redemption cap.
type Coupon struct {
	Code           string    `json:"code"`
	PercentOff     int64     `json:"percent_off"`
	ExpiresAt      time.Time `json:"expires_at"`
	MaxRedemptions int64     `json:"max_redemptions"`
	Redeemed       int64     `json:"redeemed"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c *Coupon) Usable(now time.Time) error {
	if !now.Before(c.ExpiresAt) {
		return ErrCouponExpired
	}

	if c.Redeemed >= c.MaxRedemptions {
		return ErrCouponExhausted
	}

	return nil
}

// Apply returns the total after the discount, rounded to cents.
func (c *Coupon) Apply(total decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(100 - c.PercentOff).Div(decimal.NewFromInt(100))
	return total.Mul(factor).Round(2)
}

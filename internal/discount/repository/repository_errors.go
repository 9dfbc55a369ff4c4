package repository

import "errors"

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponNotRedeemable = errors.New("coupon can no longer be redeemed")
)

package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/go-bookstore/internal/discount/domain"
	"github.com/sakashimaa/go-bookstore/internal/discount/repository"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type DiscountService interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	// Validate resolves a code to a usable coupon; expired or exhausted
	// coupons come back as Conflict.
	Validate(ctx context.Context, code string) (*domain.Coupon, error)
	// Redeem is called inside the checkout transaction so the redemption
	// counter moves together with the order insert.
	Redeem(ctx context.Context, tx pgx.Tx, code string) error
}

type discountService struct {
	repo   repository.CouponRepository
	tracer trace.Tracer
}

func NewDiscountService(repo repository.CouponRepository) DiscountService {
	return &discountService{
		repo:   repo,
		tracer: otel.Tracer("discount/service"),
	}
}

func (s *discountService) Create(ctx context.Context, coupon *domain.Coupon) error {
	ctx, span := s.tracer.Start(ctx, "DiscountService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("code", coupon.Code),
	)

	if coupon.Code == "" {
		return apperr.Validation("coupon code must not be empty")
	}

	if coupon.PercentOff < 1 || coupon.PercentOff > 100 {
		return apperr.Validation("percent off must be between 1 and 100")
	}

	if coupon.MaxRedemptions <= 0 {
		return apperr.Validation("max redemptions must be positive")
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	return nil
}

func (s *discountService) Validate(ctx context.Context, code string) (*domain.Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "DiscountService.Validate")
	defer span.End()

	span.SetAttributes(
		attribute.String("code", code),
	)

	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return nil, apperr.Newf(apperr.CodeNotFound, "coupon %s not found", code)
		}

		span.RecordError(err)
		return nil, apperr.Unexpected(err)
	}

	if err := coupon.Usable(time.Now()); err != nil {
		return nil, apperr.Wrap(apperr.CodeConflict, err.Error(), err)
	}

	return coupon, nil
}

func (s *discountService) Redeem(ctx context.Context, tx pgx.Tx, code string) error {
	ctx, span := s.tracer.Start(ctx, "DiscountService.Redeem")
	defer span.End()

	span.SetAttributes(
		attribute.String("code", code),
	)

	if err := s.repo.Redeem(ctx, tx, code); err != nil {
		if errors.Is(err, repository.ErrCouponNotRedeemable) {
			return apperr.Newf(apperr.CodeConflict, "coupon %s can no longer be redeemed", code)
		}

		span.RecordError(err)
		return apperr.Unexpected(err)
	}

	return nil
}

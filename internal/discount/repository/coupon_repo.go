package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-bookstore/internal/discount/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *domain.Coupon) error
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	// Redeem bumps the redemption counter inside the caller's transaction,
	// guarded so an expired or exhausted coupon cannot slip through
	// concurrently.
	Redeem(ctx context.Context, tx pgx.Tx, code string) error
}

type couponRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &couponRepository{
		pool:   pool,
		tracer: otel.Tracer("discount/repository"),
	}
}

func (r *couponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("code", coupon.Code),
	)

	query := `INSERT INTO coupons (code, percent_off, expires_at, max_redemptions, redeemed, created_at)
			  VALUES ($1, $2, $3, $4, 0, NOW())`

	if _, err := r.pool.Exec(ctx, query, coupon.Code, coupon.PercentOff, coupon.ExpiresAt, coupon.MaxRedemptions); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create coupon: %w", err)
	}

	return nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.GetByCode")
	defer span.End()

	span.SetAttributes(
		attribute.String("code", code),
	)

	query := `SELECT code, percent_off, expires_at, max_redemptions, redeemed, created_at
			  FROM coupons
			  WHERE code = $1`

	var coupon domain.Coupon
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&coupon.Code,
		&coupon.PercentOff,
		&coupon.ExpiresAt,
		&coupon.MaxRedemptions,
		&coupon.Redeemed,
		&coupon.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to read coupon: %w", err)
	}

	return &coupon, nil
}

func (r *couponRepository) Redeem(ctx context.Context, tx pgx.Tx, code string) error {
	ctx, span := r.tracer.Start(ctx, "CouponRepository.Redeem")
	defer span.End()

	span.SetAttributes(
		attribute.String("code", code),
	)

	query := `UPDATE coupons
			  SET redeemed = redeemed + 1
			  WHERE code = $1
				AND redeemed < max_redemptions
				AND expires_at > NOW()`

	tag, err := tx.Exec(ctx, query, code)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to redeem coupon: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCouponNotRedeemable
	}

	return nil
}

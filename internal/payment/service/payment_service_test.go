package service

import (
	"context"
	"errors"
	"testing"

	orderdomain "github.com/sakashimaa/go-bookstore/internal/order/domain"
	paymentdomain "github.com/sakashimaa/go-bookstore/internal/payment/domain"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	lastAmount   decimal.Decimal
	lastCurrency string
	lastMetadata map[string]string
	err          error
}

func (f *fakeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*paymentdomain.Intent, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.lastAmount = amount
	f.lastCurrency = currency
	f.lastMetadata = metadata

	return &paymentdomain.Intent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret",
		Status:       paymentdomain.IntentStatusRequiresPayment,
		Amount:       amount,
		Currency:     currency,
	}, nil
}

type fakeOrderService struct {
	ordersByIntent map[string]*orderdomain.Order
	attached       map[int64]string
	succeeded      []int64
	failed         []int64
}

func newFakeOrderService() *fakeOrderService {
	return &fakeOrderService{
		ordersByIntent: make(map[string]*orderdomain.Order),
		attached:       make(map[int64]string),
	}
}

func (f *fakeOrderService) GetForOwner(ctx context.Context, ownerID, orderID int64) (*orderdomain.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrderService) ListForOwner(ctx context.Context, ownerID, limit, offset int64) ([]orderdomain.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrderService) GetByPaymentIntentID(ctx context.Context, intentID string) (*orderdomain.Order, error) {
	order, ok := f.ordersByIntent[intentID]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "no order for payment intent %s", intentID)
	}
	return order, nil
}

func (f *fakeOrderService) AttachPaymentIntent(ctx context.Context, orderID int64, intentID string) error {
	f.attached[orderID] = intentID
	return nil
}

func (f *fakeOrderService) MarkPaymentSucceeded(ctx context.Context, orderID int64) error {
	f.succeeded = append(f.succeeded, orderID)
	return nil
}

func (f *fakeOrderService) MarkPaymentFailed(ctx context.Context, orderID int64) error {
	f.failed = append(f.failed, orderID)
	return nil
}

func (f *fakeOrderService) Ship(ctx context.Context, orderID int64) error {
	return errors.New("not implemented")
}

func (f *fakeOrderService) Deliver(ctx context.Context, orderID int64) error {
	return errors.New("not implemented")
}

func (f *fakeOrderService) Cancel(ctx context.Context, ownerID, orderID int64) error {
	return errors.New("not implemented")
}

func (f *fakeOrderService) AddLine(ctx context.Context, ownerID, orderID, bookID, quantity int64) (*orderdomain.Order, error) {
	return nil, errors.New("not implemented")
}

func TestOrderCreatedHandler_CreatesAndAttachesIntent(t *testing.T) {
	gw := &fakeGateway{}
	orders := newFakeOrderService()
	svc := NewPaymentService(gw, orders, "USD", zap.NewNop())

	err := svc.OrderCreatedHandler().Handle(context.Background(), orderdomain.OrderCreated{
		OrderID: 42,
		OwnerID: 7,
		Total:   decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)

	require.True(t, gw.lastAmount.Equal(decimal.RequireFromString("25.00")))
	require.Equal(t, "USD", gw.lastCurrency)
	require.Equal(t, "42", gw.lastMetadata["order_id"])
	require.Equal(t, "pi_123", orders.attached[42])
}

func TestOrderCreatedHandler_GatewayFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("provider down")}
	orders := newFakeOrderService()
	svc := NewPaymentService(gw, orders, "USD", zap.NewNop())

	err := svc.OrderCreatedHandler().Handle(context.Background(), orderdomain.OrderCreated{OrderID: 42})
	require.Error(t, err)
	require.Empty(t, orders.attached)
}

func TestHandleSucceeded_TransitionsOrder(t *testing.T) {
	orders := newFakeOrderService()
	orders.ordersByIntent["pi_123"] = &orderdomain.Order{ID: 42, Status: orderdomain.StatusPending}
	svc := NewPaymentService(&fakeGateway{}, orders, "USD", zap.NewNop())

	require.NoError(t, svc.HandleSucceeded(context.Background(), "pi_123"))
	require.Equal(t, []int64{42}, orders.succeeded)
}

func TestHandleSucceeded_UnknownIntent(t *testing.T) {
	svc := NewPaymentService(&fakeGateway{}, newFakeOrderService(), "USD", zap.NewNop())

	err := svc.HandleSucceeded(context.Background(), "pi_missing")
	require.Error(t, err)
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestHandleFailed_TransitionsOrder(t *testing.T) {
	orders := newFakeOrderService()
	orders.ordersByIntent["pi_123"] = &orderdomain.Order{ID: 42, Status: orderdomain.StatusPending}
	svc := NewPaymentService(&fakeGateway{}, orders, "USD", zap.NewNop())

	require.NoError(t, svc.HandleFailed(context.Background(), "pi_123"))
	require.Equal(t, []int64{42}, orders.failed)
}

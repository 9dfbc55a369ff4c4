package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	cartdomain "github.com/sakashimaa/go-bookstore/internal/cart/domain"
	discountdomain "github.com/sakashimaa/go-bookstore/internal/discount/domain"
	orderdomain "github.com/sakashimaa/go-bookstore/internal/order/domain"
	stockdomain "github.com/sakashimaa/go-bookstore/internal/stock/domain"
	outboxdomain "github.com/sakashimaa/go-bookstore/pkg/outbox/domain"
)

type fakeTx struct {
	pgx.Tx
	committed bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	return nil
}

type fakeBeginner struct {
	lastTx   *fakeTx
	beginErr error
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.lastTx = &fakeTx{}
	return b.lastTx, nil
}

type fakeCarts struct {
	cart    *cartdomain.Cart
	cleared bool
}

func (f *fakeCarts) Get(ctx context.Context, ownerID int64) (*cartdomain.Cart, error) {
	if f.cart == nil {
		return cartdomain.NewCart(ownerID), nil
	}
	return f.cart, nil
}

func (f *fakeCarts) AddItem(ctx context.Context, ownerID, bookID, quantity int64) (*cartdomain.Cart, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCarts) SetQuantity(ctx context.Context, ownerID, bookID, quantity int64) (*cartdomain.Cart, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCarts) RemoveItem(ctx context.Context, ownerID, bookID int64) (*cartdomain.Cart, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCarts) Clear(ctx context.Context, ownerID int64) error {
	f.cleared = true
	return nil
}

type fakeStock struct {
	decreaseErr error
	decreased   [][]stockdomain.Adjustment
	increased   [][]stockdomain.Adjustment
}

func (f *fakeStock) CheckAvailability(ctx context.Context, items []stockdomain.Adjustment) ([]stockdomain.Shortage, error) {
	return nil, nil
}

func (f *fakeStock) Decrease(ctx context.Context, items []stockdomain.Adjustment) error {
	if f.decreaseErr != nil {
		return f.decreaseErr
	}
	f.decreased = append(f.decreased, items)
	return nil
}

func (f *fakeStock) Increase(ctx context.Context, items []stockdomain.Adjustment) error {
	f.increased = append(f.increased, items)
	return nil
}

func (f *fakeStock) SetQuantity(ctx context.Context, bookID, quantity int64) error {
	return errors.New("not implemented")
}

func (f *fakeStock) GetRecord(ctx context.Context, bookID int64) (*stockdomain.StockRecord, error) {
	return nil, errors.New("not implemented")
}

type fakeOrders struct {
	nextID     int64
	created    []*orderdomain.Order
	createErr  error
	getByIDErr error
}

func (f *fakeOrders) Create(ctx context.Context, tx pgx.Tx, order *orderdomain.Order) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	stored := *order
	stored.ID = f.nextID
	f.created = append(f.created, &stored)
	return f.nextID, nil
}

func (f *fakeOrders) GetByID(ctx context.Context, id int64) (*orderdomain.Order, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	for _, order := range f.created {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeOrders) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*orderdomain.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrders) ListByOwner(ctx context.Context, ownerID, limit, offset int64) ([]orderdomain.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, from, to orderdomain.Status) error {
	return errors.New("not implemented")
}

func (f *fakeOrders) AddLine(ctx context.Context, tx pgx.Tx, orderID int64, line orderdomain.OrderLine) error {
	return errors.New("not implemented")
}

func (f *fakeOrders) UpdateTotal(ctx context.Context, tx pgx.Tx, order *orderdomain.Order) error {
	return errors.New("not implemented")
}

func (f *fakeOrders) SetPaymentIntentID(ctx context.Context, orderID int64, intentID string) error {
	return errors.New("not implemented")
}

func (f *fakeOrders) GetByPaymentIntentID(ctx context.Context, intentID string) (*orderdomain.Order, error) {
	return nil, errors.New("not implemented")
}

type fakeDiscounts struct {
	coupons  map[string]*discountdomain.Coupon
	redeemed []string
}

func (f *fakeDiscounts) Create(ctx context.Context, coupon *discountdomain.Coupon) error {
	return errors.New("not implemented")
}

func (f *fakeDiscounts) Validate(ctx context.Context, code string) (*discountdomain.Coupon, error) {
	coupon, ok := f.coupons[code]
	if !ok {
		return nil, errors.New("coupon not found")
	}
	return coupon, nil
}

func (f *fakeDiscounts) Redeem(ctx context.Context, tx pgx.Tx, code string) error {
	f.redeemed = append(f.redeemed, code)
	return nil
}

type fakeOutbox struct {
	saved []*outboxdomain.OutboxEvent
}

func (f *fakeOutbox) SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *outboxdomain.OutboxEvent) error {
	f.saved = append(f.saved, event)
	return nil
}

func (f *fakeOutbox) GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*outboxdomain.OutboxEvent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOutbox) MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	return errors.New("not implemented")
}

func (f *fakeOutbox) MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	return errors.New("not implemented")
}

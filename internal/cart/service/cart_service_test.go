package service

import (
	"context"
	"errors"
	"testing"

	cartdomain "github.com/sakashimaa/go-bookstore/internal/cart/domain"
	catalogdomain "github.com/sakashimaa/go-bookstore/internal/catalog/domain"
	"github.com/sakashimaa/go-bookstore/pkg/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	carts   map[int64]*cartdomain.Cart
	getErr  error
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{carts: make(map[int64]*cartdomain.Cart)}
}

func (f *fakeStore) Get(ctx context.Context, ownerID int64) (*cartdomain.Cart, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.carts[ownerID], nil
}

func (f *fakeStore) Save(ctx context.Context, cart *cartdomain.Cart) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.carts[cart.OwnerID] = cart
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, ownerID int64) error {
	delete(f.carts, ownerID)
	return nil
}

type fakeCatalog struct {
	books map[int64]*catalogdomain.Book
}

func (f *fakeCatalog) GetByID(ctx context.Context, id int64) (*catalogdomain.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "book %d not found", id)
	}
	return book, nil
}

func (f *fakeCatalog) Create(ctx context.Context, book *catalogdomain.Book) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeCatalog) List(ctx context.Context, limit, offset int64, search string) ([]catalogdomain.Book, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeCatalog) Update(ctx context.Context, id int64, input *catalogdomain.UpdateBookInput) error {
	return errors.New("not implemented")
}

func (f *fakeCatalog) Delete(ctx context.Context, id int64) error {
	return errors.New("not implemented")
}

func newService(store *fakeStore, catalog *fakeCatalog) CartService {
	return NewCartService(store, catalog, zap.NewNop())
}

func catalogWith(books ...*catalogdomain.Book) *fakeCatalog {
	f := &fakeCatalog{books: make(map[int64]*catalogdomain.Book)}
	for _, b := range books {
		f.books[b.ID] = b
	}
	return f
}

func book(id int64, title, price string) *catalogdomain.Book {
	return &catalogdomain.Book{
		ID:    id,
		Title: title,
		Price: decimal.RequireFromString(price),
	}
}

func TestGet_EmptyWhenAbsent(t *testing.T) {
	svc := newService(newFakeStore(), catalogWith())

	cart, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, cart.IsEmpty())
	require.EqualValues(t, 7, cart.OwnerID)
}

func TestGet_DegradesToEmptyOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	svc := newService(store, catalogWith())

	cart, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, cart.IsEmpty())
}

func TestAddItem_SnapshotsTitleAndPrice(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, catalogWith(book(1, "The Go Programming Language", "34.99")))

	cart, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "The Go Programming Language", cart.Items[0].Title)
	require.True(t, cart.Items[0].UnitPrice.Equal(decimal.RequireFromString("34.99")))
	require.EqualValues(t, 2, cart.Items[0].Quantity)

	// Persisted, not just returned.
	require.Len(t, store.carts[7].Items, 1)
}

func TestAddItem_MergesQuantities(t *testing.T) {
	svc := newService(newFakeStore(), catalogWith(book(1, "Book", "10.00")))

	_, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	cart, err := svc.AddItem(context.Background(), 7, 1, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.EqualValues(t, 5, cart.Items[0].Quantity)
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	svc := newService(newFakeStore(), catalogWith(book(1, "Book", "10.00")))

	_, err := svc.AddItem(context.Background(), 7, 1, 0)
	require.Error(t, err)
	require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestAddItem_UnknownBook(t *testing.T) {
	svc := newService(newFakeStore(), catalogWith())

	_, err := svc.AddItem(context.Background(), 7, 99, 1)
	require.Error(t, err)
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestSetQuantity_RemovesLineAtZero(t *testing.T) {
	svc := newService(newFakeStore(), catalogWith(book(1, "Book", "10.00")))

	_, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	cart, err := svc.SetQuantity(context.Background(), 7, 1, 0)
	require.NoError(t, err)
	require.True(t, cart.IsEmpty())
}

func TestSetQuantity_UnknownLine(t *testing.T) {
	svc := newService(newFakeStore(), catalogWith())

	_, err := svc.SetQuantity(context.Background(), 7, 42, 3)
	require.Error(t, err)
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestClear_DeletesBackingRecord(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, catalogWith(book(1, "Book", "10.00")))

	_, err := svc.AddItem(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), 7))
	require.NotContains(t, store.carts, int64(7))
}

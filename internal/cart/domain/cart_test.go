package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func item(bookID int64, price string, qty int64) CartItem {
	return CartItem{
		BookID:    bookID,
		Title:     "some book",
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestAddItem_MergesSameBookByQuantity(t *testing.T) {
	cart := NewCart(1)

	cart.AddItem(item(42, "10.00", 2))
	cart.AddItem(item(42, "10.00", 3))

	require.Len(t, cart.Items, 1)
	require.EqualValues(t, 5, cart.Items[0].Quantity)
}

func TestAddItem_KeepsFirstSnapshot(t *testing.T) {
	cart := NewCart(1)

	cart.AddItem(item(42, "10.00", 1))

	repriced := item(42, "12.50", 1)
	repriced.Title = "renamed edition"
	cart.AddItem(repriced)

	require.Len(t, cart.Items, 1)
	require.True(t, cart.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, "some book", cart.Items[0].Title)
}

func TestAddItem_DistinctBooksAppend(t *testing.T) {
	cart := NewCart(1)

	cart.AddItem(item(1, "10.00", 2))
	cart.AddItem(item(2, "5.00", 1))

	require.Len(t, cart.Items, 2)
}

func TestSetQuantity_Overwrites(t *testing.T) {
	cart := NewCart(1)
	cart.AddItem(item(1, "10.00", 2))

	require.True(t, cart.SetQuantity(1, 7))
	require.EqualValues(t, 7, cart.Items[0].Quantity)
}

func TestSetQuantity_ZeroOrNegativeRemovesLine(t *testing.T) {
	cart := NewCart(1)
	cart.AddItem(item(1, "10.00", 2))
	cart.AddItem(item(2, "5.00", 1))

	require.True(t, cart.SetQuantity(1, 0))
	require.Len(t, cart.Items, 1)
	require.EqualValues(t, 2, cart.Items[0].BookID)

	require.True(t, cart.SetQuantity(2, -3))
	require.True(t, cart.IsEmpty())
}

func TestSetQuantity_UnknownBook(t *testing.T) {
	cart := NewCart(1)
	cart.AddItem(item(1, "10.00", 2))

	require.False(t, cart.SetQuantity(99, 1))
	require.Len(t, cart.Items, 1)
}

func TestTotal(t *testing.T) {
	cart := NewCart(1)
	cart.AddItem(item(1, "10.00", 2))
	cart.AddItem(item(2, "5.00", 1))

	require.True(t, cart.Total().Equal(decimal.RequireFromString("25.00")))
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one selected book. Title and UnitPrice are snapshots captured
// when the book was added; checkout uses them as-is and never re-reads the
// catalog, so the price a buyer saw is the price they are charged.
type CartItem struct {
	BookID    int64           `json:"book_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

type Cart struct {
	OwnerID   int64      `json:"owner_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(ownerID int64) *Cart {
	return &Cart{OwnerID: ownerID}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem merges by book id, summing quantities. The snapshot from the first
// add wins; a later add of the same book only bumps the quantity.
func (c *Cart) AddItem(item CartItem) {
	for i := range c.Items {
		if c.Items[i].BookID == item.BookID {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}

	c.Items = append(c.Items, item)
}

// SetQuantity overwrites the line's quantity, removing the line entirely when
// the new quantity is zero or negative. Returns false when no line matches.
func (c *Cart) SetQuantity(bookID, quantity int64) bool {
	for i := range c.Items {
		if c.Items[i].BookID != bookID {
			continue
		}

		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		return true
	}

	return false
}

func (c *Cart) RemoveItem(bookID int64) bool {
	return c.SetQuantity(bookID, 0)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total
}

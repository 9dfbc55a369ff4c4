package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateLine    = errors.New("order already contains this book")
	ErrOrderNotEditable = errors.New("order can no longer be modified")
)

// OrderLine carries the title and unit price captured at checkout time, so
// later catalog edits never change what the customer agreed to pay.
type OrderLine struct {
	BookID    int64           `json:"book_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

type Order struct {
	ID              int64           `json:"id"`
	OwnerID         int64           `json:"owner_id"`
	ShippingAddress string          `json:"shipping_address"`
	Status          Status          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	PaymentIntentID *string         `json:"payment_intent_id,omitempty"`
	Lines           []OrderLine     `json:"lines"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CalculateTotal sums the line subtotals. Kept separate from Total so a
// stored order can be cross-checked against its lines.
func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}

	return total
}

// AddLine appends a line and raises the total by its subtotal. The stored
// total may sit below the line sum when a coupon was redeemed at checkout;
// adding to it instead of recomputing keeps that discount, with the new line
// charged at full price. Orders accept new lines only while Pending or
// Processing, and never a second line for the same book.
func (o *Order) AddLine(line OrderLine) error {
	if !o.Status.Editable() {
		return ErrOrderNotEditable
	}

	for _, existing := range o.Lines {
		if existing.BookID == line.BookID {
			return ErrDuplicateLine
		}
	}

	o.Lines = append(o.Lines, line)
	o.Total = o.Total.Add(line.Subtotal())

	return nil
}

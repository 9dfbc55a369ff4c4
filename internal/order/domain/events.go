package domain

import "github.com/shopspring/decimal"

// OrderCreated is published after a checkout commits. Handlers run
// out-of-band: a failing handler is logged and never affects the order.
type OrderCreated struct {
	OrderID int64           `json:"order_id"`
	OwnerID int64           `json:"owner_id"`
	Total   decimal.Decimal `json:"total"`
	Lines   []OrderLine     `json:"lines"`
}

func (OrderCreated) EventName() string { return "order.created" }

type OrderCancelled struct {
	OrderID int64 `json:"order_id"`
	OwnerID int64 `json:"owner_id"`
}

func (OrderCancelled) EventName() string { return "order.cancelled" }

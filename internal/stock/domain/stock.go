package domain

import (
	"sort"
	"time"
)

// StockRecord is the single source of truth for one book's promisable
// quantity. Records are created lazily by the first set/increase and are
// never deleted; Quantity is only ever changed through ledger operations.
type StockRecord struct {
	BookID    int64     `db:"book_id"`
	Quantity  int64     `db:"quantity"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Adjustment is one line of a batch increase/decrease.
type Adjustment struct {
	BookID   int64 `json:"book_id"`
	Quantity int64 `json:"quantity"`
}

// Shortage reports one book that cannot satisfy a requested decrease.
type Shortage struct {
	BookID    int64 `json:"book_id"`
	Required  int64 `json:"required"`
	Available int64 `json:"available"`
}

// MergeAdjustments collapses duplicate book ids by summing quantities and
// returns the result sorted by book id. Locking rows in this canonical order
// keeps concurrent batches that share items from deadlocking.
func MergeAdjustments(items []Adjustment) []Adjustment {
	byBook := make(map[int64]int64, len(items))
	for _, item := range items {
		byBook[item.BookID] += item.Quantity
	}

	merged := make([]Adjustment, 0, len(byBook))
	for bookID, quantity := range byBook {
		merged = append(merged, Adjustment{BookID: bookID, Quantity: quantity})
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].BookID < merged[j].BookID
	})

	return merged
}

// PlanDecrease checks a proposed decrease against the available quantities
// and reports every book that blocks it: books with no record at all, and
// books with insufficient stock. An empty result means the whole batch can
// be applied.
func PlanDecrease(available map[int64]int64, items []Adjustment) (missing []int64, shortages []Shortage) {
	for _, item := range items {
		quantity, ok := available[item.BookID]
		if !ok {
			missing = append(missing, item.BookID)
			continue
		}

		if quantity < item.Quantity {
			shortages = append(shortages, Shortage{
				BookID:    item.BookID,
				Required:  item.Quantity,
				Available: quantity,
			})
		}
	}

	return missing, shortages
}

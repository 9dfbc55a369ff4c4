package repository

import "errors"

var (
	ErrStockRecordNotFound = errors.New("stock record not found")
)

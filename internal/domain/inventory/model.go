package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/carequeue/pkg/capacity"
)

type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	LowStock   StockStatus = "low_stock"
	OutOfStock StockStatus = "out_of_stock"
)

func ParseStockStatus(s string) (StockStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in_stock", "in-stock", "adequate":
		return InStock, true
	case "low_stock", "low-stock", "low":
		return LowStock, true
	case "out_of_stock", "out-of-stock", "out":
		return OutOfStock, true
	}
	return "", false
}

// StatusOf derives the stock status. An item at or below its minimum is low.
func StatusOf(current, minimum int) StockStatus {
	switch {
	case current <= 0:
		return OutOfStock
	case current <= minimum:
		return LowStock
	default:
		return InStock
	}
}

// Item maps to the inventory_item table. Status is derived, never stored.
type Item struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Category     string      `db:"category" json:"category"`
	CurrentStock int         `db:"current_stock" json:"current_stock"`
	MinimumStock int         `db:"minimum_stock" json:"minimum_stock"`
	Unit         string      `db:"unit" json:"unit"`
	Supplier     *string     `db:"supplier" json:"supplier,omitempty"`
	ExpiryDate   *time.Time  `db:"expiry_date" json:"expiry_date,omitempty"`
	Status       StockStatus `json:"status"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

func (i *Item) refreshStatus() {
	i.Status = StatusOf(i.CurrentStock, i.MinimumStock)
}

// SortField names a List ordering column.
type SortField string

const (
	SortName     SortField = "name"
	SortCategory SortField = "category"
	SortStock    SortField = "stock"
	SortMinimum  SortField = "minimum"
)

func ParseSortField(s string) (SortField, bool) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortName, true
	case SortName, SortCategory, SortStock, SortMinimum:
		return f, true
	}
	return "", false
}

// Filter narrows and orders List. Query matches name or category,
// case-insensitively.
type Filter struct {
	Query    string
	Category string
	Status   StockStatus
	Sort     SortField
	Desc     bool
}

type Summary struct {
	Total      int            `json:"total"`
	InStock    int            `json:"in_stock"`
	LowStock   int            `json:"low_stock"`
	OutOfStock int            `json:"out_of_stock"`
	Shortage   capacity.Ratio `json:"shortage"`
	Categories []string       `json:"categories"`
}

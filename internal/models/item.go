package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the physical condition of a catalog item.
type ItemStatus string

const (
	ItemStatusAvailable        ItemStatus = "available"
	ItemStatusUnderMaintenance ItemStatus = "under_maintenance"
	ItemStatusDamaged          ItemStatus = "damaged"
)

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusUnderMaintenance, ItemStatusDamaged:
		return true
	}
	return false
}

// ItemFilter holds search and filter criteria for catalog queries
type ItemFilter struct {
	Query    string      `json:"query,omitempty"`    // Name search
	Category string      `json:"category,omitempty"` // Exact category match
	Status   *ItemStatus `json:"status,omitempty"`
	Limit    int         `json:"limit,omitempty"`  // Page size (default: 50)
	Offset   int         `json:"offset,omitempty"` // Page offset
}

// InventoryItem is a catalog entry with its stock counters.
// QuantityAvailable is QuantityTotal minus the quantity held by active reservations.
type InventoryItem struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Name              string     `json:"name" db:"name"`
	Category          string     `json:"category" db:"category"`
	QuantityTotal     int        `json:"quantity_total" db:"quantity_total"`
	QuantityAvailable int        `json:"quantity_available" db:"quantity_available"`
	Status            ItemStatus `json:"status" db:"status"`
	LowStockThreshold int        `json:"low_stock_threshold" db:"low_stock_threshold"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Reserved returns the quantity currently held by reservations.
func (i *InventoryItem) Reserved() int {
	return i.QuantityTotal - i.QuantityAvailable
}

// IsLowStock reports whether the item is at or below its alert threshold.
// A zero threshold disables the alert.
func (i *InventoryItem) IsLowStock() bool {
	return i.LowStockThreshold > 0 && i.QuantityAvailable <= i.LowStockThreshold
}

// Reservation is a committed decrement of an item's available quantity tied to one request.
type Reservation struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	ItemID     uuid.UUID  `json:"item_id" db:"item_id"`
	RequestID  *uuid.UUID `json:"request_id,omitempty" db:"request_id"`
	Quantity   int        `json:"quantity" db:"quantity"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty" db:"released_at"`
}

// Active reports whether the reservation still holds stock.
func (r *Reservation) Active() bool {
	return r.ReleasedAt == nil
}

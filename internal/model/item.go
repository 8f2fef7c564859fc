package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is one physical, individually tracked object.
type Item struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	ShortID            string     `db:"short_id" json:"shortId"`
	ItemDefinitionID   int64      `db:"item_definition_id" json:"itemDefinitionId"`
	WarehouseID        int64      `db:"warehouse_id" json:"warehouseId"`
	Status             ItemStatus `db:"status" json:"status"`
	EntryDate          time.Time  `db:"entry_date" json:"entryDate"`
	LastUpdated        time.Time  `db:"last_updated" json:"lastUpdated"`
	Remarks            *string    `db:"remarks" json:"remarks"`
	PhotoURL           *string    `db:"photo_url" json:"photoUrl"`
	CurrentDestination *string    `db:"current_destination" json:"currentDestination"`

	// Joined fields.
	ItemDefinition ItemDefinition `db:"definition" json:"itemDefinition"`
	Warehouse      Warehouse      `db:"warehouse" json:"warehouse"`
}

// ItemStatus is the lifecycle state of an item.
type ItemStatus string

// Item statuses.
const (
	ItemStatusInStock   ItemStatus = "InStock"
	ItemStatusLoanedOut ItemStatus = "LoanedOut"
	ItemStatusDisposed  ItemStatus = "Disposed"
)

// ItemStatuses lists every valid status.
var ItemStatuses = []ItemStatus{ItemStatusInStock, ItemStatusLoanedOut, ItemStatusDisposed}

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	for _, v := range ItemStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseItemStatus parses a status name case-insensitively.
func ParseItemStatus(s string) (ItemStatus, bool) {
	for _, v := range ItemStatuses {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return "", false
}

// HoldsDestination reports whether an item in this status may carry a
// current destination.
func (s ItemStatus) HoldsDestination() bool {
	return s == ItemStatusLoanedOut || s == ItemStatusDisposed
}

// ShortIDFromID derives the default short id: the last 8 hex characters of
// the id, upper-cased.
func ShortIDFromID(id uuid.UUID) string {
	s := id.String()
	return strings.ToUpper(s[len(s)-8:])
}

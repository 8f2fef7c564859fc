package lifecycle

import (
	"strings"

	"github.com/erazemk/auditit/internal/model"
)

// Transition is a requested state change for an existing item.
type Transition struct {
	Action model.AuditAction
	// Destination is stored on the item for Outbound and Dispose.
	Destination string
	// WarehouseID is the target of a Transfer.
	WarehouseID int64
	// Note is written to the audit row of a Transfer.
	Note string
}

// allowedFrom lists the statuses each action may start from in strict mode.
var allowedFrom = map[model.AuditAction][]model.ItemStatus{
	model.ActionOutbound: {model.ItemStatusInStock},
	model.ActionReturn:   {model.ItemStatusLoanedOut},
	model.ActionCheck:    {model.ItemStatusInStock, model.ItemStatusLoanedOut},
	model.ActionDispose:  {model.ItemStatusInStock, model.ItemStatusLoanedOut},
	model.ActionTransfer: {model.ItemStatusInStock, model.ItemStatusLoanedOut},
}

// Allowed reports whether action may be applied to an item in status under
// strict transition rules.
func Allowed(action model.AuditAction, status model.ItemStatus) bool {
	for _, s := range allowedFrom[action] {
		if s == status {
			return true
		}
	}
	return false
}

// ActionForStatus maps a batch target status to the transition that reaches it.
func ActionForStatus(status model.ItemStatus) (model.AuditAction, bool) {
	switch status {
	case model.ItemStatusInStock:
		return model.ActionReturn, true
	case model.ItemStatusLoanedOut:
		return model.ActionOutbound, true
	case model.ItemStatusDisposed:
		return model.ActionDispose, true
	default:
		return "", false
	}
}

// apply mutates item in memory for t. Transfer is handled by the engine
// because it needs the target warehouse.
func (t Transition) apply(item *model.Item) {
	switch t.Action {
	case model.ActionOutbound:
		item.Status = model.ItemStatusLoanedOut
		item.CurrentDestination = optional(t.Destination)
	case model.ActionCheck, model.ActionReturn:
		item.Status = model.ItemStatusInStock
		item.CurrentDestination = nil
	case model.ActionDispose:
		item.Status = model.ItemStatusDisposed
		item.CurrentDestination = optional(t.Destination)
	}
}

// note is the free-text value recorded in the audit row's destination column.
func (t Transition) note() *string {
	switch t.Action {
	case model.ActionOutbound, model.ActionDispose:
		return optional(t.Destination)
	case model.ActionTransfer:
		return optional(t.Note)
	default:
		return nil
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

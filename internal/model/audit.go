package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnknownUser is recorded as the actor when no identity is available.
const UnknownUser = "Unknown User"

// AuditAction is the kind of lifecycle event.
type AuditAction string

// Audit actions.
const (
	ActionInbound  AuditAction = "Inbound"
	ActionOutbound AuditAction = "Outbound"
	ActionCheck    AuditAction = "Check"
	ActionReturn   AuditAction = "Return"
	ActionDispose  AuditAction = "Dispose"
	ActionTransfer AuditAction = "Transfer"
)

// AuditActions lists every valid action.
var AuditActions = []AuditAction{
	ActionInbound, ActionOutbound, ActionCheck, ActionReturn, ActionDispose, ActionTransfer,
}

// ParseAuditAction parses an action name case-insensitively.
func ParseAuditAction(s string) (AuditAction, bool) {
	for _, a := range AuditActions {
		if strings.EqualFold(s, string(a)) {
			return a, true
		}
	}
	return "", false
}

// AuditLog is an immutable record of one lifecycle event. Item and warehouse
// names are a snapshot taken when the event was written.
type AuditLog struct {
	ID            int64       `db:"id" json:"id"`
	Timestamp     time.Time   `db:"timestamp" json:"timestamp"`
	Action        AuditAction `db:"action" json:"action"`
	ItemID        uuid.UUID   `db:"item_id" json:"itemId"`
	ItemShortID   string      `db:"item_short_id" json:"itemShortId"`
	ItemName      string      `db:"item_name" json:"itemName"`
	WarehouseID   int64       `db:"warehouse_id" json:"warehouseId"`
	WarehouseName string      `db:"warehouse_name" json:"warehouseName"`
	User          string      `db:"user_name" json:"user"`
	Destination   *string     `db:"destination" json:"destination"`
}

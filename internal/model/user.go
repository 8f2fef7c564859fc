package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an authenticated principal. SSO users carry a DingTalk id, local
// accounts a password hash.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	DingTalkID   *string   `db:"dingtalk_id" json:"dingTalkId,omitempty"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// MinPasswordLength is the minimum length of a local account password.
const MinPasswordLength = 8

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// DingTalkRole maps the admin flag DingTalk reports for a user to a role.
func DingTalkRole(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidatePassword checks a new local account password.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

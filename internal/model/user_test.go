package model

import (
	"strings"
	"testing"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleUser, true},
		// Unknown roles fail-closed.
		{"unknown", RoleUser, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleUser, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{strings.Repeat("x", MinPasswordLength-1), true},
		{strings.Repeat("x", MinPasswordLength), false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestDingTalkRole(t *testing.T) {
	if got := DingTalkRole(true); got != RoleAdmin {
		t.Errorf("DingTalkRole(true) = %q, want %q", got, RoleAdmin)
	}
	if got := DingTalkRole(false); got != RoleUser {
		t.Errorf("DingTalkRole(false) = %q, want %q", got, RoleUser)
	}
	for _, role := range []string{DingTalkRole(true), DingTalkRole(false)} {
		if !ValidRole(role) {
			t.Errorf("DingTalkRole produced unknown role %q", role)
		}
	}
	if ValidRole("manager") {
		t.Error("expected manager to be rejected")
	}
}

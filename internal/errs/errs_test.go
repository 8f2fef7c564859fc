package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		kind     Kind
	}{
		{NotFound("item %s not found", "x"), ErrNotFound, KindNotFound},
		{Validation("target warehouse not found"), ErrValidation, KindValidation},
		{Conflict("illegal transition"), ErrConflict, KindConflict},
		{Upstream(errors.New("boom"), "dingtalk"), ErrUpstream, KindUpstream},
	}

	for _, tt := range tests {
		if !errors.Is(tt.err, tt.sentinel) {
			t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.sentinel)
		}
		wrapped := fmt.Errorf("outer: %w", tt.err)
		if got := KindOf(wrapped); got != tt.kind {
			t.Errorf("KindOf(%v) = %v, want %v", wrapped, got, tt.kind)
		}
	}

	if errors.Is(NotFound("x"), ErrValidation) {
		t.Error("not-found error must not match validation sentinel")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain error should have unknown kind")
	}
}

func TestUpstreamMessage(t *testing.T) {
	err := Upstream(errors.New("errcode 40078"), "getting dingtalk user")
	if err.Error() != "getting dingtalk user: errcode 40078" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

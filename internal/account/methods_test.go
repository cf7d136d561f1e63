package account

import (
	"errors"
	"testing"
)

func TestCanRemove_PasswordOnly(t *testing.T) {
	if err := CanRemove(true, 0, RemovePassword); !errors.Is(err, ErrLastAuthMethod) {
		t.Fatalf("expected ErrLastAuthMethod, got %v", err)
	}
	if err := CanRemove(true, 0, RemoveOAuth); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}

func TestCanRemove_PasswordAndOAuth(t *testing.T) {
	if err := CanRemove(true, 2, RemovePassword); err != nil {
		t.Fatalf("expected password removable, got %v", err)
	}
	if err := CanRemove(true, 1, RemoveOAuth); err != nil {
		t.Fatalf("expected oauth unlinkable alongside password, got %v", err)
	}
}

func TestCanRemove_OAuthOnly(t *testing.T) {
	if err := CanRemove(false, 1, RemoveOAuth); !errors.Is(err, ErrLastAuthMethod) {
		t.Fatalf("expected ErrLastAuthMethod for last provider, got %v", err)
	}
	if err := CanRemove(false, 2, RemoveOAuth); err != nil {
		t.Fatalf("expected second provider unlinkable, got %v", err)
	}
	if err := CanRemove(false, 1, RemovePassword); !errors.Is(err, ErrNoPassword) {
		t.Fatalf("expected ErrNoPassword, got %v", err)
	}
}

func TestCanSetPassword(t *testing.T) {
	if err := CanSetPassword(false); err != nil {
		t.Fatalf("expected set allowed for oauth-only user, got %v", err)
	}
	if err := CanSetPassword(true); !errors.Is(err, ErrPasswordAlreadySet) {
		t.Fatalf("expected ErrPasswordAlreadySet, got %v", err)
	}
}

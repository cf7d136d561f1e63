package validate

import (
	"errors"
	"testing"
)

func TestEmail_NormalizesCase(t *testing.T) {
	email, err := Email("  Chef@Example.COM ")
	if err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}
	if email != "chef@example.com" {
		t.Fatalf("expected lowercase email, got %q", email)
	}
}

func TestEmail_RejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-an-email", "a@"} {
		if _, err := Email(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestPassword_MinLength(t *testing.T) {
	if err := Password("short"); !errors.Is(err, ErrPasswordShort) {
		t.Fatalf("expected ErrPasswordShort, got %v", err)
	}
	if err := Password("long enough"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestServings_OptionalPositive(t *testing.T) {
	n, err := Servings("")
	if err != nil || n != nil {
		t.Fatalf("expected nil for blank servings, got %v %v", n, err)
	}
	n, err = Servings("4")
	if err != nil || n == nil || *n != 4 {
		t.Fatalf("expected 4, got %v %v", n, err)
	}
	if _, err = Servings("0"); !errors.Is(err, ErrNotPositive) {
		t.Fatalf("expected ErrNotPositive, got %v", err)
	}
	if _, err = Servings("four"); !errors.Is(err, ErrNotANumber) {
		t.Fatalf("expected ErrNotANumber, got %v", err)
	}
}

func TestQuantity_RejectsZeroAndBlank(t *testing.T) {
	if _, err := Quantity(""); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired, got %v", err)
	}
	if _, err := Quantity("0"); !errors.Is(err, ErrNotPositive) {
		t.Fatalf("expected ErrNotPositive, got %v", err)
	}
	q, err := Quantity("2.5")
	if err != nil || q != 2.5 {
		t.Fatalf("expected 2.5, got %v %v", q, err)
	}
}

func TestName_Normalizes(t *testing.T) {
	name, err := Name(" Tablespoon ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if name != "tablespoon" {
		t.Fatalf("expected lowercase name, got %q", name)
	}
}

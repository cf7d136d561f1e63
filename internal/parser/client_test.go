package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParse_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer pk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ingredients":[{"quantity":2,"unit":"cup","ingredientName":"flour"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "pk-test")
	lines, err := client.Parse(context.Background(), "2 cups flour")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Quantity != 2 || lines[0].Unit != "cup" || lines[0].IngredientName != "flour" {
		t.Fatalf("unexpected line %+v", lines[0])
	}
}

func TestParse_Unparsable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "pk-test")
	if _, err := client.Parse(context.Background(), "???"); !errors.Is(err, ErrUnparsable) {
		t.Fatalf("expected ErrUnparsable, got %v", err)
	}
}

func TestParse_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "pk-test")
	_, err := client.Parse(context.Background(), "2 cups flour")
	if err == nil || errors.Is(err, ErrUnparsable) {
		t.Fatalf("expected non-parse error, got %v", err)
	}
}

func TestParse_NotConfigured(t *testing.T) {
	client := NewClient("", "")
	if _, err := client.Parse(context.Background(), "text"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

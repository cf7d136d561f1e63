package dictionary

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spoonjoy/spoonjoy/internal/db"
	"github.com/spoonjoy/spoonjoy/internal/models"
)

func openTestDB(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "dict-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.Unit{}, &models.IngredientRef{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewStore(conn)
}

func TestUnitByName_CaseInsensitiveGetOrCreate(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	first, err := store.UnitByName(ctx, "Tablespoon")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := store.UnitByName(ctx, "  TABLESPOON ")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same unit row, got %d and %d", first.ID, second.ID)
	}
	if first.Name != "tablespoon" {
		t.Fatalf("expected normalized name, got %q", first.Name)
	}

	var count int64
	if errCount := store.db.Model(&models.Unit{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected 1 unit row, got %d", count)
	}
}

func TestIngredientRefByName_CaseInsensitiveGetOrCreate(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	first, err := store.IngredientRefByName(ctx, "Flour")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := store.IngredientRefByName(ctx, "fLoUr")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same ref row, got %d and %d", first.ID, second.ID)
	}
}

func TestUnitByName_RejectsBlank(t *testing.T) {
	store := openTestDB(t)
	if _, err := store.UnitByName(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

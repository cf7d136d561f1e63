package recipes

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spoonjoy/spoonjoy/internal/db"
	"github.com/spoonjoy/spoonjoy/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open("file:" + filepath.Join(t.TempDir(), "recipes-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedRecipe(t *testing.T, conn *gorm.DB, stepCount int) *models.Recipe {
	t.Helper()
	user := models.User{Email: "chef@example.com", Username: "chef"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	recipe := models.Recipe{Title: "Test Recipe", ChefID: user.ID}
	if err := conn.Create(&recipe).Error; err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	for i := 1; i <= stepCount; i++ {
		step := models.RecipeStep{RecipeID: recipe.ID, StepNum: i, Description: "do the thing"}
		if err := conn.Create(&step).Error; err != nil {
			t.Fatalf("create step %d: %v", i, err)
		}
	}
	return &recipe
}

func TestNextStepNum_Dense(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	recipe := seedRecipe(t, conn, 0)

	for want := 1; want <= 3; want++ {
		got, err := NextStepNum(ctx, conn, recipe.ID)
		if err != nil {
			t.Fatalf("next step num: %v", err)
		}
		if got != want {
			t.Fatalf("expected step num %d, got %d", want, got)
		}
		step := models.RecipeStep{RecipeID: recipe.ID, StepNum: got, Description: "step"}
		if errCreate := conn.Create(&step).Error; errCreate != nil {
			t.Fatalf("create step: %v", errCreate)
		}
	}
}

func TestValidateUses(t *testing.T) {
	existing := []int{1, 2, 3}
	if err := ValidateUses(existing, 3, []int{1, 2}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := ValidateUses(existing, 2, []int{2}); !errors.Is(err, ErrInvalidUses) {
		t.Fatalf("expected ErrInvalidUses for self reference, got %v", err)
	}
	if err := ValidateUses(existing, 3, []int{4}); !errors.Is(err, ErrInvalidUses) {
		t.Fatalf("expected ErrInvalidUses for future step, got %v", err)
	}
	if err := ValidateUses([]int{1}, 2, []int{}); err != nil {
		t.Fatalf("expected empty set valid, got %v", err)
	}
}

func TestReplaceStepUses_ExactSet(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	recipe := seedRecipe(t, conn, 3)

	countUses := func() int64 {
		var count int64
		if err := conn.Model(&models.StepOutputUse{}).
			Where("recipe_id = ? AND input_step_num = ?", recipe.ID, 3).
			Count(&count).Error; err != nil {
			t.Fatalf("count uses: %v", err)
		}
		return count
	}

	// Submit {1,2}, then {1}, then {} and verify 2 -> 1 -> 0 rows.
	if err := ReplaceStepUses(ctx, conn, recipe.ID, 3, []int{1, 2}); err != nil {
		t.Fatalf("replace with {1,2}: %v", err)
	}
	if got := countUses(); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}

	if err := ReplaceStepUses(ctx, conn, recipe.ID, 3, []int{1}); err != nil {
		t.Fatalf("replace with {1}: %v", err)
	}
	if got := countUses(); got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
	remaining, err := UsesForStep(ctx, conn, recipe.ID, 3)
	if err != nil {
		t.Fatalf("list uses: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != 1 {
		t.Fatalf("expected remaining set {1}, got %v", remaining)
	}

	if errReplace := ReplaceStepUses(ctx, conn, recipe.ID, 3, nil); errReplace != nil {
		t.Fatalf("replace with {}: %v", errReplace)
	}
	if got := countUses(); got != 0 {
		t.Fatalf("expected 0 rows, got %d", got)
	}
}

func TestDeleteStep_RenumbersDense(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	recipe := seedRecipe(t, conn, 4)

	// Step 4 consumes steps 1 and 3; step 3 consumes step 2.
	if err := ReplaceStepUses(ctx, conn, recipe.ID, 4, []int{1, 3}); err != nil {
		t.Fatalf("seed uses: %v", err)
	}
	if err := ReplaceStepUses(ctx, conn, recipe.ID, 3, []int{2}); err != nil {
		t.Fatalf("seed uses: %v", err)
	}

	if err := DeleteStep(ctx, conn, recipe.ID, 2); err != nil {
		t.Fatalf("delete step: %v", err)
	}

	var steps []models.RecipeStep
	if err := conn.Where("recipe_id = ?", recipe.ID).Order("step_num ASC").Find(&steps).Error; err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, step := range steps {
		if step.StepNum != i+1 {
			t.Fatalf("expected dense numbering, got %d at position %d", step.StepNum, i)
		}
	}

	// Old step 4 is now step 3 and still consumes old steps 1 and 3,
	// the latter renumbered to 2. Old step 3 (now 2) lost its edge to
	// the deleted step.
	uses, err := UsesForStep(ctx, conn, recipe.ID, 3)
	if err != nil {
		t.Fatalf("list uses: %v", err)
	}
	if len(uses) != 2 || uses[0] != 1 || uses[1] != 2 {
		t.Fatalf("expected renumbered uses {1,2}, got %v", uses)
	}

	uses, err = UsesForStep(ctx, conn, recipe.ID, 2)
	if err != nil {
		t.Fatalf("list uses: %v", err)
	}
	if len(uses) != 0 {
		t.Fatalf("expected no uses for renumbered step 2, got %v", uses)
	}
}

func TestDeleteStep_Missing(t *testing.T) {
	conn := openTestDB(t)
	recipe := seedRecipe(t, conn, 1)
	if err := DeleteStep(context.Background(), conn, recipe.ID, 9); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestFindLive_SoftDeleted(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	recipe := seedRecipe(t, conn, 1)

	if _, err := FindLive(ctx, conn, recipe.ID); err != nil {
		t.Fatalf("expected live recipe found, got %v", err)
	}

	if err := conn.Delete(&models.Recipe{}, recipe.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := FindLive(ctx, conn, recipe.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after soft delete, got %v", err)
	}
}

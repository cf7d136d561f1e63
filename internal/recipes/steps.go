// Package recipes implements the recipe/step consistency rules: dense
// 1-based step numbering, the step output dependency set, and soft-delete
// aware lookups.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spoonjoy/spoonjoy/internal/models"
	"gorm.io/gorm"
)

// ErrInvalidUses rejects a usesSteps submission referencing a step that does
// not exist or does not precede the consuming step.
var ErrInvalidUses = errors.New("recipes: invalid uses steps")

// FindLive loads a recipe by id with steps, ingredients, and dictionary rows
// eagerly attached. Soft-deleted recipes are not found.
func FindLive(ctx context.Context, conn *gorm.DB, recipeID uint64) (*models.Recipe, error) {
	var recipe models.Recipe
	errFind := conn.WithContext(ctx).
		Preload("Steps", func(tx *gorm.DB) *gorm.DB { return tx.Order("step_num ASC") }).
		Preload("Steps.Ingredients").
		Preload("Steps.Ingredients.Unit").
		Preload("Steps.Ingredients.IngredientRef").
		First(&recipe, recipeID).Error
	if errFind != nil {
		return nil, errFind
	}
	return &recipe, nil
}

// NextStepNum returns the dense 1-based number the next step should take.
func NextStepNum(ctx context.Context, conn *gorm.DB, recipeID uint64) (int, error) {
	var maxNum int
	errScan := conn.WithContext(ctx).
		Model(&models.RecipeStep{}).
		Where("recipe_id = ?", recipeID).
		Select("COALESCE(MAX(step_num), 0)").
		Scan(&maxNum).Error
	if errScan != nil {
		return 0, fmt.Errorf("recipes: max step num: %w", errScan)
	}
	return maxNum + 1, nil
}

// ValidateUses checks that every submitted output step exists in the recipe
// and strictly precedes the consuming step.
func ValidateUses(existingStepNums []int, inputStepNum int, uses []int) error {
	known := make(map[int]struct{}, len(existingStepNums))
	for _, n := range existingStepNums {
		known[n] = struct{}{}
	}
	for _, n := range uses {
		if n >= inputStepNum {
			return fmt.Errorf("%w: step %d does not precede step %d", ErrInvalidUses, n, inputStepNum)
		}
		if _, ok := known[n]; !ok {
			return fmt.Errorf("%w: step %d does not exist", ErrInvalidUses, n)
		}
	}
	return nil
}

// UsesForStep returns the sorted output step numbers consumed by a step.
func UsesForStep(ctx context.Context, conn *gorm.DB, recipeID uint64, inputStepNum int) ([]int, error) {
	var rows []models.StepOutputUse
	errFind := conn.WithContext(ctx).
		Where("recipe_id = ? AND input_step_num = ?", recipeID, inputStepNum).
		Order("output_step_num ASC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("recipes: list uses: %w", errFind)
	}
	nums := make([]int, 0, len(rows))
	for _, row := range rows {
		nums = append(nums, row.OutputStepNum)
	}
	return nums, nil
}

// ReplaceStepUses makes the stored dependency set for a step exactly equal
// the submitted set, adding and removing rows as needed in one transaction.
// An empty set clears every row for the step.
func ReplaceStepUses(ctx context.Context, conn *gorm.DB, recipeID uint64, inputStepNum int, uses []int) error {
	wanted := make(map[int]struct{}, len(uses))
	for _, n := range uses {
		wanted[n] = struct{}{}
	}

	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, errCurrent := UsesForStep(ctx, tx, recipeID, inputStepNum)
		if errCurrent != nil {
			return errCurrent
		}
		have := make(map[int]struct{}, len(current))
		for _, n := range current {
			have[n] = struct{}{}
		}

		var toRemove []int
		for _, n := range current {
			if _, ok := wanted[n]; !ok {
				toRemove = append(toRemove, n)
			}
		}
		var toAdd []int
		for n := range wanted {
			if _, ok := have[n]; !ok {
				toAdd = append(toAdd, n)
			}
		}
		sort.Ints(toAdd)

		if len(toRemove) > 0 {
			if errDelete := tx.
				Where("recipe_id = ? AND input_step_num = ? AND output_step_num IN ?", recipeID, inputStepNum, toRemove).
				Delete(&models.StepOutputUse{}).Error; errDelete != nil {
				return fmt.Errorf("recipes: remove uses: %w", errDelete)
			}
		}
		for _, n := range toAdd {
			row := models.StepOutputUse{
				RecipeID:      recipeID,
				OutputStepNum: n,
				InputStepNum:  inputStepNum,
			}
			if errCreate := tx.Create(&row).Error; errCreate != nil {
				return fmt.Errorf("recipes: add use: %w", errCreate)
			}
		}
		return nil
	})
}

// DeleteStep removes a step together with its ingredients and every
// dependency row touching it, then renumbers trailing steps so the sequence
// stays dense.
func DeleteStep(ctx context.Context, conn *gorm.DB, recipeID uint64, stepNum int) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("recipe_id = ? AND step_num = ?", recipeID, stepNum).Delete(&models.RecipeStep{})
		if res.Error != nil {
			return fmt.Errorf("recipes: delete step: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if errIngredients := tx.
			Where("recipe_id = ? AND step_num = ?", recipeID, stepNum).
			Delete(&models.Ingredient{}).Error; errIngredients != nil {
			return fmt.Errorf("recipes: delete step ingredients: %w", errIngredients)
		}
		if errUses := tx.
			Where("recipe_id = ? AND (input_step_num = ? OR output_step_num = ?)", recipeID, stepNum, stepNum).
			Delete(&models.StepOutputUse{}).Error; errUses != nil {
			return fmt.Errorf("recipes: delete step uses: %w", errUses)
		}

		// Shift trailing rows down one at a time in ascending order so the
		// (recipe_id, step_num) unique index never sees a collision.
		var trailing []models.RecipeStep
		if errFind := tx.
			Where("recipe_id = ? AND step_num > ?", recipeID, stepNum).
			Order("step_num ASC").
			Find(&trailing).Error; errFind != nil {
			return fmt.Errorf("recipes: load trailing steps: %w", errFind)
		}
		for _, step := range trailing {
			newNum := step.StepNum - 1
			if errStep := tx.Model(&models.RecipeStep{}).
				Where("id = ?", step.ID).
				Update("step_num", newNum).Error; errStep != nil {
				return fmt.Errorf("recipes: renumber step %d: %w", step.StepNum, errStep)
			}
			if errIng := tx.Model(&models.Ingredient{}).
				Where("recipe_id = ? AND step_num = ?", recipeID, step.StepNum).
				Update("step_num", newNum).Error; errIng != nil {
				return fmt.Errorf("recipes: renumber ingredients: %w", errIng)
			}
			if errIn := tx.Model(&models.StepOutputUse{}).
				Where("recipe_id = ? AND input_step_num = ?", recipeID, step.StepNum).
				Update("input_step_num", newNum).Error; errIn != nil {
				return fmt.Errorf("recipes: renumber input uses: %w", errIn)
			}
			if errOut := tx.Model(&models.StepOutputUse{}).
				Where("recipe_id = ? AND output_step_num = ?", recipeID, step.StepNum).
				Update("output_step_num", newNum).Error; errOut != nil {
				return fmt.Errorf("recipes: renumber output uses: %w", errOut)
			}
		}
		return nil
	})
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Recipe represents an authored recipe. Deletion is soft: DeletedAt is set
// and every read filters deleted rows out, so a deleted recipe is a 404 for
// all callers including its owner.
type Recipe struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Title       string  `gorm:"type:text;not null"` // Recipe title.
	Description *string `gorm:"type:text"`          // Optional description.
	Servings    *int    `gorm:""`                   // Optional serving count.
	ImageURL    *string `gorm:"type:text"`          // Optional cover image URL.

	ChefID uint64 `gorm:"not null;index"`    // Owning user ID.
	Chef   *User  `gorm:"foreignKey:ChefID"` // Owning user.

	Steps []RecipeStep `gorm:"foreignKey:RecipeID"` // Ordered steps.

	CreatedAt time.Time      `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"` // Last update timestamp.
	DeletedAt gorm.DeletedAt `gorm:"index"`                   // Soft delete marker.
}

// RecipeStep is one step of a recipe. StepNum is a dense 1-based sequence
// per recipe; a new step always takes max(step_num)+1.
type RecipeStep struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RecipeID uint64  `gorm:"not null;uniqueIndex:idx_recipe_steps_recipe_num"` // Owning recipe ID.
	StepNum  int     `gorm:"not null;uniqueIndex:idx_recipe_steps_recipe_num"` // 1-based position.
	StepTitle *string `gorm:"type:text"`          // Optional step title.
	Description string `gorm:"type:text;not null"` // Step instructions, non-blank after trim.

	Ingredients []Ingredient `gorm:"foreignKey:RecipeID,StepNum;references:RecipeID,StepNum"` // Ingredients used by this step.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// StepOutputUse records that step InputStepNum consumes the output of step
// OutputStepNum within the same recipe. Output always precedes input.
type StepOutputUse struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RecipeID      uint64 `gorm:"not null;uniqueIndex:idx_step_output_uses_edge"` // Owning recipe ID.
	OutputStepNum int    `gorm:"not null;uniqueIndex:idx_step_output_uses_edge"` // Producing step number.
	InputStepNum  int    `gorm:"not null;uniqueIndex:idx_step_output_uses_edge"` // Consuming step number.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

package models

import "time"

// Unit is a global measurement dictionary entry keyed by lowercase name,
// created on demand when an ingredient first references it.
type Unit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;uniqueIndex"` // Normalized lowercase name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// IngredientRef is a global ingredient-name dictionary entry keyed by
// lowercase name, created on demand.
type IngredientRef struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name string `gorm:"type:text;not null;uniqueIndex"` // Normalized lowercase name.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// Ingredient attaches a quantity of a dictionary ingredient to one step of
// a recipe.
type Ingredient struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RecipeID uint64 `gorm:"not null;index:idx_ingredients_recipe_step"` // Owning recipe ID.
	StepNum  int    `gorm:"not null;index:idx_ingredients_recipe_step"` // Owning step number.

	Quantity float64 `gorm:"type:decimal(10,3);not null"` // Positive amount.

	UnitID uint64 `gorm:"not null;index"`    // Measurement unit ID.
	Unit   *Unit  `gorm:"foreignKey:UnitID"` // Measurement unit.

	IngredientRefID uint64         `gorm:"not null;index"`             // Dictionary entry ID.
	IngredientRef   *IngredientRef `gorm:"foreignKey:IngredientRefID"` // Dictionary entry.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

package models

import "time"

// Cookbook groups recipes under a title unique per author. Only the author
// may modify the cookbook or its membership.
type Cookbook struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Title string `gorm:"type:text;not null;uniqueIndex:idx_cookbooks_author_title"` // Cookbook title.

	AuthorID uint64 `gorm:"not null;uniqueIndex:idx_cookbooks_author_title;index"` // Owning user ID.
	Author   *User  `gorm:"foreignKey:AuthorID"`                                   // Owning user.

	Recipes []RecipeInCookbook `gorm:"foreignKey:CookbookID"` // Member recipes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// RecipeInCookbook is a unique membership of a recipe in a cookbook.
type RecipeInCookbook struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CookbookID uint64    `gorm:"not null;uniqueIndex:idx_recipe_in_cookbook_pair"` // Cookbook ID.
	Cookbook   *Cookbook `gorm:"foreignKey:CookbookID"`                            // Cookbook.

	RecipeID uint64  `gorm:"not null;uniqueIndex:idx_recipe_in_cookbook_pair"` // Recipe ID.
	Recipe   *Recipe `gorm:"foreignKey:RecipeID"`                              // Recipe.

	AddedByID uint64 `gorm:"not null"` // User who added the recipe.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

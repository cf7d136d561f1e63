package models

import "time"

// User represents a registered chef account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Email address, stored lowercase.
	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique display handle.

	// HashedPassword is a bcrypt hash (salt embedded). Nil means the
	// account authenticates through linked OAuth providers only.
	HashedPassword *string `gorm:"type:text"`

	PhotoURL *string `gorm:"type:text"` // Profile photo URL; nil falls back to the default avatar.

	TOTPSecret string `gorm:"type:text"` // TOTP secret when two-factor is enabled.

	OAuthAccounts []OAuthAccount `gorm:"foreignKey:UserID"` // Linked external identities.
	Recipes       []Recipe       `gorm:"foreignKey:ChefID"` // Authored recipes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// HasPassword reports whether the user has a local password set.
func (u User) HasPassword() bool {
	return u.HashedPassword != nil && *u.HashedPassword != ""
}

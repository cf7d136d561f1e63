package models

import (
	"time"

	"gorm.io/datatypes"
)

// OAuthAccount links a user to an external identity provider.
type OAuthAccount struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`     // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID"`  // Owning user.

	Provider       string `gorm:"type:text;not null;uniqueIndex:idx_oauth_provider_user"` // Provider name (github, google, ...).
	ProviderUserID string `gorm:"type:text;not null;uniqueIndex:idx_oauth_provider_user"` // Stable user ID at the provider.

	ProviderUsername string         `gorm:"type:text"`   // Display name cached from the provider.
	RawProfile       datatypes.JSON `gorm:"type:jsonb"`  // Last profile payload returned by the provider.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides GORM's default "o_auth_accounts" naming.
func (OAuthAccount) TableName() string {
	return "oauth_accounts"
}

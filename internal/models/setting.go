package models

import (
	"encoding/json"
	"time"
)

// Setting is a site-wide configuration row keyed by name with a JSON value.
type Setting struct {
	Key   string          `gorm:"primaryKey;type:text"` // Setting name.
	Value json.RawMessage `gorm:"type:jsonb"`           // JSON-encoded value.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

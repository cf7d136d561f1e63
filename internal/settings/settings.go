package settings

import (
	"encoding/json"
	"errors"

	"github.com/spoonjoy/spoonjoy/internal/models"
	"gorm.io/gorm"
)

// getJSON loads and decodes a setting value into out.
func getJSON(conn *gorm.DB, key string, out any) error {
	if conn == nil {
		return errors.New("settings: nil connection")
	}
	var row models.Setting
	if errFind := conn.Where("key = ?", key).First(&row).Error; errFind != nil {
		return errFind
	}
	if len(row.Value) == 0 {
		return errors.New("settings: empty value")
	}
	return json.Unmarshal(row.Value, out)
}

// GetString reads a string setting, falling back on any error.
func GetString(conn *gorm.DB, key, fallback string) string {
	var value string
	if err := getJSON(conn, key, &value); err != nil || value == "" {
		return fallback
	}
	return value
}

// GetBool reads a boolean setting, falling back on any error.
func GetBool(conn *gorm.DB, key string, fallback bool) bool {
	var value bool
	if err := getJSON(conn, key, &value); err != nil {
		return fallback
	}
	return value
}

// GetInt reads an integer setting, falling back on any error.
func GetInt(conn *gorm.DB, key string, fallback int) int {
	var value int
	if err := getJSON(conn, key, &value); err != nil {
		return fallback
	}
	return value
}

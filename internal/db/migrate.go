package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spoonjoy/spoonjoy/internal/models"
	internalsettings "github.com/spoonjoy/spoonjoy/internal/settings"
	"gorm.io/gorm"
)

// migratedModels lists every table in dependency order.
func migratedModels() []any {
	return []any{
		&models.User{},
		&models.OAuthAccount{},
		&models.Unit{},
		&models.IngredientRef{},
		&models.Recipe{},
		&models.RecipeStep{},
		&models.Ingredient{},
		&models.StepOutputUse{},
		&models.Cookbook{},
		&models.RecipeInCookbook{},
		&models.Setting{},
	}
}

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(migratedModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_users_email_lower",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower
				ON users (LOWER(email))
			`,
		},
		{
			name: "idx_users_username_lower",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower
				ON users (LOWER(username))
			`,
		},
		{
			name: "idx_recipes_chef_id_live",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_recipes_chef_id_live
				ON recipes (chef_id, created_at DESC)
				WHERE deleted_at IS NULL
			`,
		},
		{
			name: "idx_cookbooks_author_title_lower",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_cookbooks_author_title_lower
				ON cookbooks (author_id, LOWER(title))
			`,
		},
		{
			name: "idx_step_output_uses_recipe_input",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_step_output_uses_recipe_input
				ON step_output_uses (recipe_id, input_step_num)
			`,
		},
		{
			name: "idx_oauth_accounts_user_id_provider",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_oauth_accounts_user_id_provider
				ON oauth_accounts (user_id, provider)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(migratedModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_users_email_lower",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower
				ON users (LOWER(email))
			`,
		},
		{
			name: "idx_users_username_lower",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower
				ON users (LOWER(username))
			`,
		},
		{
			name: "idx_recipes_chef_id_live",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_recipes_chef_id_live
				ON recipes (chef_id, created_at DESC)
				WHERE deleted_at IS NULL
			`,
		},
		{
			name: "idx_cookbooks_author_title_lower",
			sql: `
				CREATE UNIQUE INDEX IF NOT EXISTS idx_cookbooks_author_title_lower
				ON cookbooks (author_id, LOWER(title))
			`,
		},
		{
			name: "idx_step_output_uses_recipe_input",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_step_output_uses_recipe_input
				ON step_output_uses (recipe_id, input_step_num)
			`,
		},
		{
			name: "idx_oauth_accounts_user_id_provider",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_oauth_accounts_user_id_provider
				ON oauth_accounts (user_id, provider)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// ensureDefaultSettings seeds site-wide settings missing from the table.
func ensureDefaultSettings(conn *gorm.DB) error {
	if errEnsure := ensureStringSetting(
		conn,
		internalsettings.SiteNameKey,
		internalsettings.DefaultSiteName,
	); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureBoolSetting(
		conn,
		internalsettings.SignupEnabledKey,
		internalsettings.DefaultSignupEnabled,
	); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureStringSetting(
		conn,
		internalsettings.DefaultAvatarURLKey,
		internalsettings.DefaultAvatarURL,
	); errEnsure != nil {
		return errEnsure
	}
	return ensureIntSetting(
		conn,
		internalsettings.LoginRateLimitKey,
		internalsettings.DefaultLoginRateLimit,
	)
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	return ensureJSONSetting(conn, key, value)
}

// ensureBoolSetting ensures a boolean setting exists and defaults when empty.
func ensureBoolSetting(conn *gorm.DB, key string, value bool) error {
	return ensureJSONSetting(conn, key, value)
}

// ensureStringSetting ensures a string setting exists and defaults when empty.
func ensureStringSetting(conn *gorm.DB, key, value string) error {
	return ensureJSONSetting(conn, key, value)
}

// ensureJSONSetting ensures a setting row exists with a JSON-encoded default.
func ensureJSONSetting(conn *gorm.DB, key string, value any) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := json.RawMessage(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}

package ratelimit

import (
	internalsettings "github.com/spoonjoy/spoonjoy/internal/settings"
	"gorm.io/gorm"
)

// SettingsConfig captures login throttling settings stored in the DB.
type SettingsConfig struct {
	LoginLimit    int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettingsConfig loads the current rate limit settings snapshot.
func LoadSettingsConfig(conn *gorm.DB) SettingsConfig {
	cfg := SettingsConfig{
		LoginLimit:  internalsettings.DefaultLoginRateLimit,
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}
	if conn == nil {
		return cfg
	}
	cfg.LoginLimit = internalsettings.GetInt(conn, internalsettings.LoginRateLimitKey, cfg.LoginLimit)
	cfg.RedisEnabled = internalsettings.GetBool(conn, internalsettings.RateLimitRedisEnabledKey, false)
	cfg.RedisAddr = internalsettings.GetString(conn, internalsettings.RateLimitRedisAddrKey, "")
	cfg.RedisPassword = internalsettings.GetString(conn, internalsettings.RateLimitRedisPasswordKey, "")
	cfg.RedisDB = internalsettings.GetInt(conn, internalsettings.RateLimitRedisDBKey, 0)
	cfg.RedisPrefix = internalsettings.GetString(conn, internalsettings.RateLimitRedisPrefixKey, cfg.RedisPrefix)
	if cfg.LoginLimit < 0 {
		cfg.LoginLimit = 0
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	return cfg
}

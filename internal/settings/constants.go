package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Spoonjoy"
	// SignupEnabledKey toggles new account registration.
	SignupEnabledKey = "SIGNUP_ENABLED"
	// DefaultSignupEnabled allows signups unless an operator disables them.
	DefaultSignupEnabled = true
	// DefaultAvatarURLKey is the DB config key for the fallback avatar.
	DefaultAvatarURLKey = "DEFAULT_AVATAR_URL"
	// DefaultAvatarURL is served when a user has no profile photo.
	DefaultAvatarURL = "/assets/avatar-placeholder.png"
	// LoginRateLimitKey controls allowed login attempts per window.
	LoginRateLimitKey = "LOGIN_RATE_LIMIT"
	// DefaultLoginRateLimit is the fallback login attempt budget.
	DefaultLoginRateLimit = 10
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "spoonjoy:rl"
)

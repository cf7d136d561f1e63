package ratelimit

import "strings"

// KeyForLogin builds a limiter key for login attempts against one account.
func KeyForLogin(identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return ""
	}
	return "login:" + identifier
}

// KeyForIP builds a limiter key for request throttling by client address.
func KeyForIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	return "ip:" + ip
}

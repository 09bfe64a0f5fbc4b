// Package util provides environment variable parsing and phone number
// helpers shared across components.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ParseBoolEnv reads a boolean environment variable such as ASHASETU_DEBUG.
// Unset or unparseable values fall back to the default. Accepts the strconv
// forms (true/false, 1/0, t/f) plus yes/no and on/off, case-insensitive.
func ParseBoolEnv(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", raw, "default", fallback)
			return fallback
		}
		return b
	}
}

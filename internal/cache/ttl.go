package cache

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// TTLEnvVar overrides the cache time-to-live: milliseconds, or days with a "d"
// suffix. Negative values mean the cache never expires.
const TTLEnvVar = "DBTRANSCODE_CACHE_TTL"

// DefaultTTL applies when no override is set.
const DefaultTTL = 12 * time.Hour

// ParseTTL parses a time-to-live in the TTLEnvVar syntax. An empty value yields DefaultTTL.
func ParseTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTTL, nil
	}
	scale := time.Millisecond
	if strings.HasSuffix(value, "d") {
		scale = 24 * time.Hour
		value = strings.TrimSuffix(value, "d")
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cache time-to-live %q: %w", value, err)
	}
	if limit := int64(math.MaxInt64 / scale); n > limit || n < -limit {
		return 0, fmt.Errorf("cache time-to-live %q is out of range", value)
	}
	return time.Duration(n) * scale, nil
}

// TTLFromEnv reads TTLEnvVar. Malformed values are logged and replaced by DefaultTTL.
func TTLFromEnv(logger *slog.Logger) time.Duration {
	ttl, err := ParseTTL(os.Getenv(TTLEnvVar))
	if err != nil {
		logger.Warn("ignoring malformed cache time-to-live", "var", TTLEnvVar, "error", err)
		return DefaultTTL
	}
	return ttl
}

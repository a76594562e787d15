// Package util provides environment variable parsing helpers shared across components.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ParseIntEnv parses an integer environment variable with a default value.
// Invalid values return the default.
func ParseIntEnv(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		slog.Warn("ParseIntEnv: invalid integer value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
	return parsed
}

// ParseInt64ListEnv parses a comma-separated list of int64 ids from an
// environment variable. Empty entries are skipped; invalid entries are
// logged and skipped.
func ParseInt64ListEnv(key string) []int64 {
	return ParseInt64List(os.Getenv(key))
}

// ParseInt64List parses a comma-separated list of int64 ids. Empty entries
// are skipped; invalid entries are logged and skipped.
func ParseInt64List(value string) []int64 {
	if value == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("ParseInt64List: skipping invalid entry", "entry", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

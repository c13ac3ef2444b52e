package common

import (
	"strconv"
	"strings"
)

// ParseOrderID converts an order reference into its numeric identifier.
func ParseOrderID(value string) (int64, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// FormatOrderID renders an order identifier as its opaque reference string.
func FormatOrderID(id int64) string {
	return strconv.FormatInt(id, 10)
}

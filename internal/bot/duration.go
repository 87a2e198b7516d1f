package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseLength parses sanction lengths like "30s", "10m", "2h", "3d", "1w".
// Day and week suffixes are handled here because time.ParseDuration stops at
// hours.
func parseLength(value string) (time.Duration, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(trimmed, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(trimmed, "w"):
		unit = 7 * 24 * time.Hour
	}
	if unit > 0 {
		number, err := strconv.ParseFloat(trimmed[:len(trimmed)-1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		if number <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(number * float64(unit)), nil
	}

	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return parsed, nil
}

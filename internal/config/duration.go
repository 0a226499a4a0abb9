package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// duration parses a config duration such as "60s" or "1m30s". A bare integer
// is read as seconds. Empty or zero yields def; negative values are invalid.
func duration(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}

	var d time.Duration
	if secs, err := strconv.Atoi(s); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("%w: %s: invalid duration %q", ErrInvalid, key, raw)
	}

	switch {
	case d < 0:
		return 0, fmt.Errorf("%w: %s: negative duration %q", ErrInvalid, key, raw)
	case d == 0:
		return def, nil
	}
	return d, nil
}

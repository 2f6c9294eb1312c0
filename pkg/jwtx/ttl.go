package jwtx

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTTL parses a token lifetime. It accepts Go durations ("90m", "1h30m"),
// a day suffix ("7d") and bare integers, which are read as seconds.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("jwtx: empty ttl")
	}

	var d time.Duration
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(n) * time.Second
	} else if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("jwtx: invalid ttl %q", s)
		}
		d = time.Duration(n * float64(24*time.Hour))
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("jwtx: invalid ttl %q: %w", s, err)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("jwtx: ttl %q must be positive", s)
	}
	return d, nil
}

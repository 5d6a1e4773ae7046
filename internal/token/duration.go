package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// "15m" / "1h" / "7d" のような有効期限を time.Duration に変換する。
// m / h / d 以外は設定エラー（起動時に落とす）。
func ParseExpiration(s string) (time.Duration, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return 0, fmt.Errorf("expiration is empty")
	}

	num, unit := v[:len(v)-1], v[len(v)-1:]

	var base time.Duration
	switch unit {
	case "m":
		base = time.Minute
	case "h":
		base = time.Hour
	case "d":
		base = 24 * time.Hour
	default:
		return 0, fmt.Errorf("unsupported expiration format: %q", s)
	}

	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, fmt.Errorf("invalid expiration %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("expiration must be positive: %q", s)
	}

	return time.Duration(n) * base, nil
}

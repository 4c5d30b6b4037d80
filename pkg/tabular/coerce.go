package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coercion of raw source values. Each helper reports ok=false when the
// value cannot be interpreted; callers decide whether that means "drop
// the row" or "record as absent".

// AsString renders a cell as its canonical string form. Integral floats
// collapse to the bare integer ("12.0" becomes "12"), so an identifier
// matches across tables no matter whether a sheet stored it as number
// or text.
func AsString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return AsString(float64(x))
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprintf("%v", x), true
	}
}

// AsFloat interprets a cell as a float64. Strings are trimmed before
// parsing; empty strings and NaN report false.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		return AsFloat(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case []byte:
		return AsFloat(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsInt interprets a cell as an integer. Floats and numeric strings are
// accepted only when they carry no fractional part, so "3.0" passes and
// "3.5" does not.
func AsInt(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if math.IsNaN(x) || x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case float32:
		return AsInt(float64(x))
	case []byte:
		return AsInt(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

//nolint:gochecknoglobals // fixed parse tables
var (
	strictTimeLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
	}
	lenientTimeLayouts = []string{
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
		"15:04:05.999999999",
		"15:04:05",
	}
)

// ParseTimestamp parses a textual timestamp. Zone-aware layouts are
// tried first and normalized to UTC; date-only and clock-only layouts
// follow as a fallback so plain timing exports still yield usable
// deltas. Clock-only values all anchor at the zero date, which keeps
// differences between them meaningful.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range strictTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range lenientTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// AsTime interprets a cell as a point in time. Numbers are treated as
// unix seconds (fractional part kept).
func AsTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case string:
		return ParseTimestamp(x)
	case []byte:
		return ParseTimestamp(string(x))
	case int:
		return time.Unix(int64(x), 0).UTC(), true
	case int64:
		return time.Unix(x, 0).UTC(), true
	case float64:
		if math.IsNaN(x) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), true
	default:
		return time.Time{}, false
	}
}

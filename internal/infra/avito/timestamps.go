package avito

import "time"

// Plausible Unix-timestamp range: roughly 2001 through 2033. Numeric fields
// outside it are left alone.
const (
	tsRangeMin = 1_000_000_000
	tsRangeMax = 2_000_000_000
)

const (
	tsFormatted = "2006-01-02 15:04:05"
	tsHuman     = "02.01.2006 at 15:04"
)

// ExpandTimestamps walks an API payload and attaches formatted and
// human-readable sibling fields next to every numeric field that falls in
// the plausible Unix-timestamp range. The original numeric value is kept
// verbatim, so the expansion is lossless.
func ExpandTimestamps(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			if ts, ok := asTimestamp(val); ok {
				t := time.Unix(ts, 0)
				out[key] = val
				out[key+"_formatted"] = t.Format(tsFormatted)
				out[key+"_human"] = t.Format(tsHuman)
				continue
			}
			switch val.(type) {
			case map[string]any, []any:
				out[key] = ExpandTimestamps(val)
			default:
				out[key] = val
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ExpandTimestamps(item)
		}
		return out
	default:
		return data
	}
}

func asTimestamp(v any) (int64, bool) {
	var n float64
	switch num := v.(type) {
	case float64:
		n = num
	case int64:
		n = float64(num)
	case int:
		n = float64(num)
	default:
		return 0, false
	}
	if n > tsRangeMin && n < tsRangeMax {
		return int64(n), true
	}
	return 0, false
}

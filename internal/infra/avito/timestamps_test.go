package avito

import (
	"testing"
	"time"
)

func TestExpandTimestampsAddsSiblings(t *testing.T) {
	in := map[string]any{
		"created": float64(1700000000),
		"text":    "hello",
	}

	out := ExpandTimestamps(in).(map[string]any)

	if out["created"] != float64(1700000000) {
		t.Errorf("Original value must be preserved, got %v", out["created"])
	}
	want := time.Unix(1700000000, 0).Format("2006-01-02 15:04:05")
	if out["created_formatted"] != want {
		t.Errorf("Expected %q, got %v", want, out["created_formatted"])
	}
	if _, ok := out["created_human"]; !ok {
		t.Error("Expected created_human sibling")
	}
	if out["text"] != "hello" {
		t.Errorf("Non-numeric fields must pass through, got %v", out["text"])
	}
}

func TestExpandTimestampsNested(t *testing.T) {
	in := map[string]any{
		"last_message": map[string]any{
			"created": float64(1700000000),
		},
		"items": []any{
			map[string]any{"updated": float64(1650000000)},
		},
	}

	out := ExpandTimestamps(in).(map[string]any)

	last := out["last_message"].(map[string]any)
	if _, ok := last["created_formatted"]; !ok {
		t.Error("Expected expansion inside nested map")
	}
	items := out["items"].([]any)
	first := items[0].(map[string]any)
	if _, ok := first["updated_formatted"]; !ok {
		t.Error("Expected expansion inside array element")
	}
}

func TestExpandTimestampsIgnoresOutOfRange(t *testing.T) {
	in := map[string]any{
		"small_number": float64(42),
		"too_large":    float64(3_000_000_000),
		"lower_bound":  float64(1_000_000_000),
		"upper_bound":  float64(2_000_000_000),
	}

	out := ExpandTimestamps(in).(map[string]any)

	for _, key := range []string{"small_number", "too_large", "lower_bound", "upper_bound"} {
		if _, ok := out[key+"_formatted"]; ok {
			t.Errorf("Field %s must not be expanded", key)
		}
	}
}

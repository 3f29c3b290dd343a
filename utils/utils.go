package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Str renders decoded JSON values the way they read in prompts: strings as
// is, everything else as compact JSON.
func Str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Clip shortens s to at most n runes for log fields.
func Clip(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

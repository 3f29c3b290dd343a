package web_retrieve

import "strings"

// printable matches the classic ASCII printable set: space through tilde
// plus the five whitespace controls.
func printable(r rune) bool {
	if r >= 0x20 && r <= 0x7e {
		return true
	}
	switch r {
	case '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// NonPrintableRatio is the fraction of runes in text outside the printable
// ASCII set. Empty text has ratio 0.
func NonPrintableRatio(text string) float64 {
	var total, bad int
	for _, r := range text {
		total++
		if !printable(r) {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}

// IsGarbled reports whether text reaches the non-printable threshold.
func IsGarbled(text string, threshold float64) bool {
	if text == "" {
		return false
	}
	return NonPrintableRatio(text) >= threshold
}

// TruncateTokens keeps the first n whitespace-delimited tokens joined by
// single spaces. n <= 0 keeps everything.
func TruncateTokens(text string, n int) string {
	fields := strings.Fields(text)
	if n > 0 && len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

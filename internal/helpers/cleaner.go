package helpers

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ExtractJSON finds and returns the first JSON object or array in s.
// It first removes Markdown code fences if present, then scans for a
// balanced {...} or [...] while ignoring braces/brackets inside strings.
// Single-quoted strings are honoured so python-style literals survive.
func ExtractJSON(s string) (string, error) {
	s = TrimBOM(strings.TrimSpace(s))

	if inner, ok := stripFirstCodeFence(s); ok {
		s = strings.TrimSpace(inner)
	}

	if len(s) > 0 && (s[0] == '{' || s[0] == '[') {
		if out, ok := extractBalancedJSONFrom(s, 0); ok {
			return out, nil
		}
	}

	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			if out, ok := extractBalancedJSONFrom(s, i); ok {
				return out, nil
			}
		}
	}

	return "", errors.New("no balanced JSON object/array found")
}

// RewritePythonLiterals replaces the bare words True, False and None outside
// string literals with their JSON spellings and turns single-quoted strings
// into double-quoted ones.
func RewritePythonLiterals(s string) string {
	out := make([]byte, 0, len(s))
	var quote byte
	escape := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if escape {
				escape = false
				if quote == '\'' && c == '\'' {
					out = out[:len(out)-1]
				}
				out = append(out, c)
				continue
			}
			switch {
			case c == '\\':
				escape = true
				out = append(out, c)
			case c == quote:
				quote = 0
				out = append(out, '"')
			case quote == '\'' && c == '"':
				out = append(out, '\\', '"')
			default:
				out = append(out, c)
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			out = append(out, '"')
			continue
		}
		if isWordStart(s, i) {
			if word, repl, ok := pythonWordAt(s, i); ok {
				out = append(out, repl...)
				i += len(word) - 1
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}

var pythonWords = [...][2]string{{"True", "true"}, {"False", "false"}, {"None", "null"}}

func pythonWordAt(s string, i int) (string, string, bool) {
	for _, w := range pythonWords {
		end := i + len(w[0])
		if !strings.HasPrefix(s[i:], w[0]) {
			continue
		}
		if end < len(s) && isIdentByte(s[end]) {
			continue
		}
		return w[0], w[1], true
	}
	return "", "", false
}

func isWordStart(s string, i int) bool {
	return i == 0 || !isIdentByte(s[i-1])
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// stripFirstCodeFence removes the first fenced code block if s starts with ``` or ~~~.
// It accepts an optional language tag (e.g., ```json).
func stripFirstCodeFence(s string) (inner string, ok bool) {
	trim := strings.TrimLeft(s, "\n\r\t ")
	if strings.HasPrefix(trim, "```") || strings.HasPrefix(trim, "~~~") {
		fence := "```"
		if strings.HasPrefix(trim, "~~~") {
			fence = "~~~"
		}
		rest := trim[len(fence):]
		if idx := strings.IndexByte(rest, '\n'); idx != -1 {
			rest = rest[idx+1:]
		} else {
			return "", false
		}
		if end := strings.Index(rest, fence); end != -1 {
			return rest[:end], true
		}
	}
	return "", false
}

// extractBalancedJSONFrom attempts to extract a balanced value starting at startIdx.
func extractBalancedJSONFrom(s string, startIdx int) (string, bool) {
	if startIdx < 0 || startIdx >= len(s) {
		return "", false
	}

	start := s[startIdx]
	if start != '{' && start != '[' {
		return "", false
	}

	var (
		stack  []byte
		quote  byte
		escape bool
	)

	popMatches := func(b byte) bool {
		if len(stack) == 0 {
			return false
		}
		top := stack[len(stack)-1]
		if (top == '{' && b == '}') || (top == '[' && b == ']') {
			stack = stack[:len(stack)-1]
			return true
		}
		return false
	}

	stack = append(stack, start)

	for i := startIdx + 1; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if !popMatches(c) {
				return "", false
			}
			if len(stack) == 0 {
				return s[startIdx : i+1], true
			}
		}
	}

	return "", false
}

// TrimBOM removes an optional UTF-8 BOM.
func TrimBOM(s string) string {
	if strings.HasPrefix(s, "\uFEFF") {
		return strings.TrimPrefix(s, "\uFEFF")
	}
	if len(s) >= 3 {
		b0, b1, b2 := s[0], s[1], s[2]
		if b0 == 0xEF && b1 == 0xBB && b2 == 0xBF && utf8.ValidString(s[3:]) {
			return s[3:]
		}
	}
	return s
}

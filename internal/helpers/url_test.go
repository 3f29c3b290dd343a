package helpers

import "testing"

func TestURLKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host and drops default port", "HTTP://News.Example.com:80/a", "http://news.example.com/a"},
		{"keeps other ports", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"drops fragment and trailing slash", "https://example.com/path/#top", "https://example.com/path"},
		{"strips tracking and sorts query", "https://example.com/a?b=2&utm_source=x&a=1&fbclid=z", "https://example.com/a?a=1&b=2"},
		{"relative input is only trimmed", "  not a url ", "not a url"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := URLKey(tt.in); got != tt.want {
				t.Fatalf("URLKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSameURL(t *testing.T) {
	t.Parallel()
	if !SameURL("https://example.com/story/?utm_medium=rss", "https://EXAMPLE.com/story") {
		t.Fatal("expected links to match")
	}
	if SameURL("https://example.com/story?id=1", "https://example.com/story?id=2") {
		t.Fatal("different query values must not match")
	}
}

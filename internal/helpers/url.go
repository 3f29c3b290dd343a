package helpers

import (
	"net/url"
	"strings"
)

// tracking parameters never change which page a link points to.
var trackingParams = map[string]bool{
	"gclid":   true,
	"dclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"igshid":  true,
}

// URLKey reduces a link to a comparison key so that two search results for
// the same page are recognised as one site. Scheme and host are lowercased,
// default ports, fragments, trailing slashes and tracking parameters
// (utm_*, gclid, fbclid...) are dropped and the query is sorted. Input that
// does not parse as an absolute URL is returned trimmed.
func URLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if h, port, ok := strings.Cut(host, ":"); ok && (port == "80" && u.Scheme == "http" || port == "443" && u.Scheme == "https") {
		host = h
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SameURL reports whether a and b name the same page.
func SameURL(a, b string) bool {
	return URLKey(a) == URLKey(b)
}

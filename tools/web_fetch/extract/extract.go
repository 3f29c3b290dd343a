// Package extract turns raw page bytes into plain text: charset detection
// and decoding, readability extraction, and a tokenizer fallback.
package extract

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/gogs/chardet"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
)

const utf8Name = "utf-8"

// Page is the decoded text of one document.
type Page struct {
	Title   string
	Byline  string
	Text    string
	Charset string
	Hash    string
}

// Decode converts body to UTF-8. A valid charset parameter in contentType
// wins; otherwise detection is trusted only at or above minConfidence
// (0..1). Anything else is read as UTF-8 with invalid bytes replaced.
func Decode(body []byte, contentType string, minConfidence float64) (string, string) {
	if name := headerCharset(contentType); name != "" {
		if s, ok := decodeAs(body, name); ok {
			return s, name
		}
	}
	if name := detect(body, minConfidence); name != "" {
		if s, ok := decodeAs(body, name); ok {
			return s, name
		}
	}
	return strings.ToValidUTF8(string(body), "\uFFFD"), utf8Name
}

func headerCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

func detect(body []byte, minConfidence float64) string {
	if len(body) == 0 {
		return ""
	}
	res, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || res == nil {
		return ""
	}
	// chardet reports confidence as 0..100.
	if float64(res.Confidence)/100 < minConfidence {
		return ""
	}
	return strings.ToLower(res.Charset)
}

func decodeAs(body []byte, name string) (string, bool) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", false
	}
	canonical, _ := htmlindex.Name(enc)
	if canonical == utf8Name {
		return strings.ToValidUTF8(string(body), "\uFFFD"), true
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", false
	}
	return strings.ToValidUTF8(string(out), "\uFFFD"), true
}

// Text extracts readable text from an HTML document. Readability is tried
// first; when it yields nothing the whole document's visible text is used.
func Text(doc string, pageURL *url.URL) Page {
	sum := sha1.Sum([]byte(doc))
	page := Page{Hash: hex.EncodeToString(sum[:])}
	if pageURL == nil {
		pageURL = &url.URL{}
	}
	if article, err := readability.FromReader(strings.NewReader(doc), pageURL); err == nil {
		page.Title = strings.TrimSpace(article.Title)
		page.Byline = strings.TrimSpace(article.Byline)
		page.Text = CleanLines(article.TextContent)
	}
	if page.Text == "" {
		page.Text = CleanLines(visibleText(strings.NewReader(doc)))
	}
	return page
}

// Parse is Decode followed by Text.
func Parse(body []byte, contentType string, pageURL *url.URL, minConfidence float64) Page {
	doc, charset := Decode(body, contentType, minConfidence)
	page := Text(doc, pageURL)
	page.Charset = charset
	return page
}

var skipped = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

func visibleText(r io.Reader) string {
	z := html.NewTokenizer(r)
	var b bytes.Buffer
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipped[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipped[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth == 0 {
				b.Write(z.Text())
				b.WriteByte('\n')
			}
		}
	}
}

// CleanLines trims every line and drops blank ones.
func CleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

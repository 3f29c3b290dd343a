package web_retrieve

// ToolResult is the (source, content) pair one tool invocation produces.
// Source may be empty when no page could be chosen.
type ToolResult struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// SiteSet is an insertion-ordered set of source URLs. The owner decides its
// lifetime: the orchestrator either resets it per tool invocation or keeps
// it for a whole session.
type SiteSet struct {
	order []string
	seen  map[string]struct{}
}

func NewSiteSet() *SiteSet {
	return &SiteSet{seen: map[string]struct{}{}}
}

// Add records url and reports whether it was new.
func (s *SiteSet) Add(url string) bool {
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

func (s *SiteSet) Has(url string) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[url]
	return ok
}

// List returns a copy in insertion order.
func (s *SiteSet) List() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

func (s *SiteSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

func (s *SiteSet) Reset() {
	s.order = nil
	s.seen = map[string]struct{}{}
}

package core

import (
	"github.com/google/uuid"
	"github.com/mohammad-safakhou/scout/tools/web_retrieve"
)

// FailedSitesScope decides how long a failed page stays excluded.
type FailedSitesScope string

const (
	// ScopeInvocation forgets failures at every tool call.
	ScopeInvocation FailedSitesScope = "invocation"
	// ScopeSession excludes a failed page for the rest of the session.
	ScopeSession FailedSitesScope = "session"
)

// Session is the state of one query from first plan to final answer.
type Session struct {
	ID         string
	Query      string
	State      State
	Plan       string
	Reason     string
	Answer     string
	Iterations int
	Assessment QualityAssessment

	visited []string
	failed  *web_retrieve.SiteSet
}

func newSession(query string) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Query:  query,
		State:  StatePlanning,
		failed: web_retrieve.NewSiteSet(),
	}
}

// Visited returns the sources seen so far, one per finished retrieval,
// empty strings included.
func (s *Session) Visited() []string {
	return append([]string(nil), s.visited...)
}

func (s *Session) failedFor(scope FailedSitesScope) *web_retrieve.SiteSet {
	if scope != ScopeSession {
		s.failed.Reset()
	}
	return s.failed
}

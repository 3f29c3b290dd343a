package server

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AnswerRequest starts a research session.
type AnswerRequest struct {
	Query string `json:"query"`
}

// AnswerResponse is the outcome of a finished session. Accepted is false
// when the iteration budget ran out before the reviewer passed an answer.
type AnswerResponse struct {
	SessionID    string   `json:"session_id"`
	Answer       string   `json:"answer"`
	Accepted     bool     `json:"accepted"`
	Iterations   int      `json:"iterations"`
	VisitedSites []string `json:"visited_sites"`
	Reason       string   `json:"reason,omitempty"`
}

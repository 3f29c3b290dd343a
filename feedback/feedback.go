// Package feedback holds the per-session list of integration responses and
// the persistence port behind it.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Entry is one integration response.
type Entry struct {
	Feedback string `json:"feedback"`
}

// Store persists the feedback list of the running session. Implementations
// keep the stored value a valid array at all times; Clear is idempotent.
type Store interface {
	EnsureInitialized(ctx context.Context) error
	Read(ctx context.Context) ([]Entry, error)
	Append(ctx context.Context, e Entry) error
	Clear(ctx context.Context) error
}

// ErrCorrupt marks stored feedback that is not a JSON array of entries.
var ErrCorrupt = errors.New("feedback store is corrupt")

// Serialize renders entries the way prompts see them: a JSON array with
// four-space indentation, "[]" when empty.
func Serialize(entries []Entry) string {
	if len(entries) == 0 {
		return "[]"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return "[]"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Parse decodes a stored array. Empty input is an empty list.
func Parse(raw []byte) ([]Entry, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return entries, nil
}

// Memory is a process-local Store.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) EnsureInitialized(context.Context) error { return nil }

func (m *Memory) Read(context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...), nil
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

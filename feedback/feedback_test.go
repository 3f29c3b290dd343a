package feedback

import (
	"context"
	"errors"
	"testing"
)

func TestSerialize(t *testing.T) {
	if got := Serialize(nil); got != "[]" {
		t.Fatalf("empty = %q", got)
	}
	got := Serialize([]Entry{{Feedback: "Paris <b>is</b> the capital"}, {Feedback: "second"}})
	want := "[\n    {\n        \"feedback\": \"Paris <b>is</b> the capital\"\n    },\n    {\n        \"feedback\": \"second\"\n    }\n]"
	if got != want {
		t.Fatalf("Serialize mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestParse(t *testing.T) {
	entries, err := Parse([]byte("  "))
	if err != nil || len(entries) != 0 {
		t.Fatalf("blank input: %v %v", entries, err)
	}
	entries, err = Parse([]byte(`[{"feedback": "a"}]`))
	if err != nil || len(entries) != 1 || entries[0].Feedback != "a" {
		t.Fatalf("unexpected parse: %v %v", entries, err)
	}
	if _, err := Parse([]byte(`{"feedback": "a"}`)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.EnsureInitialized(ctx); err != nil {
		t.Fatal(err)
	}
	for i, text := range []string{"one", "two"} {
		if err := m.Append(ctx, Entry{Feedback: text}); err != nil {
			t.Fatal(err)
		}
		got, _ := m.Read(ctx)
		if len(got) != i+1 {
			t.Fatalf("after %d appends got %d entries", i+1, len(got))
		}
	}
	for i := 0; i < 2; i++ {
		if err := m.Clear(ctx); err != nil {
			t.Fatal(err)
		}
		got, _ := m.Read(ctx)
		if Serialize(got) != "[]" {
			t.Fatalf("clear #%d left %v", i+1, got)
		}
	}
}

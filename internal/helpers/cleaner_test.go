package helpers

import "testing"

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": [1, 2]}\n```", `{"a": [1, 2]}`},
		{"prose", `The answer is {"url": "https://x.example/{id}"} ok`, `{"url": "https://x.example/{id}"}`},
		{"single quotes", `result: {'reason': 'a } inside'}`, `{'reason': 'a } inside'}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
	if _, err := ExtractJSON("nothing here"); err == nil {
		t.Fatal("expected error when no JSON present")
	}
}

func TestRewritePythonLiterals(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{'pass': True, 'reason': None}`, `{"pass": true, "reason": null}`},
		{`{'a': 'it\'s "quoted"'}`, `{"a": "it's \"quoted\""}`},
		{`{"word": "True stays"}`, `{"word": "True stays"}`},
		{`{'Truthy': False}`, `{"Truthy": false}`},
		{`[TrueValue, False]`, `[TrueValue, false]`},
	}
	for _, tc := range cases {
		if got := RewritePythonLiterals(tc.in); got != tc.want {
			t.Fatalf("RewritePythonLiterals(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestTrimBOM(t *testing.T) {
	if got := TrimBOM("\uFEFF{}"); got != "{}" {
		t.Fatalf("got %q", got)
	}
}

package provider

import (
	"errors"
	"testing"
)

func TestDecodeStrategies(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		strategy Strategy
		key      string
		want     any
	}{
		{"strict", `{"plan": "search the web"}`, StrategyStrict, "plan", "search the web"},
		{"lenient trailing comma", `{plan: 'step one',}`, StrategyLenient, "plan", "step one"},
		{"python literal", `{'pass': True, 'reason': None}`, StrategyPythonLiteral, "pass", true},
		{"fenced", "```json\n{\"response\": \"ok\"}\n```", StrategyEmbedded, "response", "ok"},
		{"prose around object", `Sure! Here it is: {"url": "https://a.example"} hope that helps`, StrategyEmbedded, "url", "https://a.example"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, strategy, err := DecodeObject(tc.raw)
			if err != nil {
				t.Fatalf("DecodeObject: %v", err)
			}
			if strategy != tc.strategy {
				t.Fatalf("strategy = %s, want %s", strategy, tc.strategy)
			}
			if obj[tc.key] != tc.want {
				t.Fatalf("%s = %#v, want %#v", tc.key, obj[tc.key], tc.want)
			}
		})
	}
}

func TestDecodePythonKeepsQuotedWords(t *testing.T) {
	obj, _, err := DecodeObject(`{'reason': "It's True that None won", 'pass': False}`)
	if err != nil {
		t.Fatalf("DecodeObject: %v", err)
	}
	if obj["reason"] != "It's True that None won" {
		t.Fatalf("reason rewritten: %#v", obj["reason"])
	}
	if obj["pass"] != false {
		t.Fatalf("pass = %#v", obj["pass"])
	}
}

func TestDecodeFailures(t *testing.T) {
	if _, err := Decode("   "); !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable for empty input, got %v", err)
	}
	if _, err := Decode("no structure here"); !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
	if _, _, err := DecodeObject(`["a", "b"]`); !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
}

func TestOutcomeText(t *testing.T) {
	ok := Succeeded(StagePlanning, "the plan", map[string]any{"plan": []any{"a", "b"}}, StrategyStrict)
	if ok.Text() != "the plan" {
		t.Fatalf("Text = %q", ok.Text())
	}
	if got := ok.Field("plan"); got != `["a","b"]` {
		t.Fatalf("Field = %q", got)
	}
	failed := Failed(StageAssessment, errors.New("boom"))
	if failed.Status != StatusTransportError {
		t.Fatalf("status = %s", failed.Status)
	}
	if failed.Text() != "Error in assessing response quality: boom" {
		t.Fatalf("Text = %q", failed.Text())
	}
}

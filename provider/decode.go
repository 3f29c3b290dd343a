package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/scout/internal/helpers"
	"github.com/titanous/json5"
)

// Strategy names the decoder that accepted a model response.
type Strategy string

const (
	StrategyStrict        Strategy = "strict"
	StrategyLenient       Strategy = "lenient"
	StrategyPythonLiteral Strategy = "python_literal"
	StrategyEmbedded      Strategy = "embedded"
)

var (
	ErrUndecodable = errors.New("response is not decodable")
	ErrNotObject   = errors.New("response is not an object")
)

// Decoded is a structured value recovered from model output.
type Decoded struct {
	Strategy Strategy
	Value    any
}

type decoder struct {
	strategy Strategy
	decode   func(string) (any, error)
}

// ordered from strictest to most forgiving; the first success wins.
var decoders = []decoder{
	{StrategyStrict, decodeStrict},
	{StrategyLenient, decodeLenient},
	{StrategyPythonLiteral, decodePythonLiteral},
}

// Decode tries each strategy against the whole response, then against the
// first fenced or embedded JSON fragment.
func Decode(raw string) (Decoded, error) {
	s := helpers.TrimBOM(strings.TrimSpace(raw))
	if s == "" {
		return Decoded{}, fmt.Errorf("%w: empty", ErrUndecodable)
	}
	if v, strategy, ok := tryDecoders(s); ok {
		return Decoded{Strategy: strategy, Value: v}, nil
	}
	frag, err := helpers.ExtractJSON(s)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if v, _, ok := tryDecoders(frag); ok {
		return Decoded{Strategy: StrategyEmbedded, Value: v}, nil
	}
	return Decoded{}, fmt.Errorf("%w: fragment %q", ErrUndecodable, clip(frag, 80))
}

// DecodeObject decodes raw and requires a JSON object at the top level.
func DecodeObject(raw string) (map[string]any, Strategy, error) {
	d, err := Decode(raw)
	if err != nil {
		return nil, "", err
	}
	obj, ok := d.Value.(map[string]any)
	if !ok {
		return nil, d.Strategy, fmt.Errorf("%w: got %T", ErrNotObject, d.Value)
	}
	return obj, d.Strategy, nil
}

func tryDecoders(s string) (any, Strategy, bool) {
	for _, d := range decoders {
		if v, err := d.decode(s); err == nil {
			return v, d.strategy, true
		}
	}
	return nil, "", false
}

func decodeStrict(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeLenient(s string) (any, error) {
	var v any
	if err := json5.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodePythonLiteral(s string) (any, error) {
	return decodeStrict(helpers.RewritePythonLiterals(s))
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

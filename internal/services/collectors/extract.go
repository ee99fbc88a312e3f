package collectors

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The model's response is not guaranteed to be pure JSON. Parsing tries an
// ordered chain of strategies; the first candidate that unmarshals wins.

var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

type extractStrategy struct {
	name      string
	candidate func(string) (string, bool)
}

var extractStrategies = []extractStrategy{
	{
		// A fenced code block containing JSON.
		name: "fenced-block",
		candidate: func(s string) (string, bool) {
			matches := fencedBlockRegex.FindStringSubmatch(s)
			if len(matches) < 2 {
				return "", false
			}
			return strings.TrimSpace(matches[1]), true
		},
	},
	{
		// The whole trimmed response, when it already looks like JSON.
		name: "whole-response",
		candidate: func(s string) (string, bool) {
			s = strings.TrimSpace(s)
			if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
				return s, true
			}
			return "", false
		},
	},
	{
		// The substring between the first '{' and the last '}', for JSON
		// embedded in surrounding prose.
		name: "brace-substring",
		candidate: func(s string) (string, bool) {
			start := strings.Index(s, "{")
			end := strings.LastIndex(s, "}")
			if start < 0 || end <= start {
				return "", false
			}
			return s[start : end+1], true
		},
	},
}

// ExtractJSON parses a model response into a loosely-typed payload using
// the strategy chain. If no strategy yields parseable JSON the whole
// attempt is a fatal parse failure carrying a response prefix for
// diagnosis.
func ExtractJSON(response string) (map[string]interface{}, error) {
	for _, strategy := range extractStrategies {
		text, ok := strategy.candidate(response)
		if !ok {
			continue
		}
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(text), &payload); err == nil {
			return payload, nil
		}
	}
	return nil, &CollectError{
		Kind:      ErrKindParse,
		Fatal:     true,
		RawPrefix: responsePrefix(response),
	}
}

// responsePrefix returns the leading bytes of a raw response for log lines.
func responsePrefix(response string) string {
	const maxPrefix = 200
	response = strings.TrimSpace(response)
	if len(response) > maxPrefix {
		return response[:maxPrefix]
	}
	return response
}

// numField coerces a payload value to a finite float, returning nil for
// null, missing, non-numeric, NaN, or infinite values. The model is
// instructed to pre-convert scale suffixes, so strings are only accepted
// when they parse as plain numbers (grouping commas tolerated).
func numField(payload map[string]interface{}, key string) *float64 {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		return finite(v)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return finite(f)
	default:
		return nil
	}
}

// strField coerces a payload value to a trimmed string, empty on absence.
func strField(payload map[string]interface{}, key string) string {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// finite returns a pointer to v when v is a usable finite number.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// nonNegative drops negative values for fields whose canonical invariant
// forbids them (prices, volumes). nil stays nil.
func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

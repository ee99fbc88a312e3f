package collectors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONStrategies(t *testing.T) {
	const body = `{"currentPrice": 71500, "per": 13.2, "name": "Samsung Electronics"}`

	tests := []struct {
		name     string
		response string
	}{
		{"fenced block with language tag", "Here is the data:\n```json\n" + body + "\n```\nLet me know if you need more."},
		{"fenced block without language tag", "```\n" + body + "\n```"},
		{"bare json", body},
		{"bare json with whitespace", "\n\n  " + body + "  \n"},
		{"json embedded in prose", "Sure! The extracted values are " + body + " as shown on the page."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ExtractJSON(tt.response)
			require.NoError(t, err)

			// every shape yields the same payload
			require.NotNil(t, numField(payload, "currentPrice"))
			assert.Equal(t, 71500.0, *numField(payload, "currentPrice"))
			require.NotNil(t, numField(payload, "per"))
			assert.Equal(t, 13.2, *numField(payload, "per"))
			assert.Equal(t, "Samsung Electronics", strField(payload, "name"))
		})
	}
}

func TestExtractJSONFencedBlockWins(t *testing.T) {
	// prose around the fence also contains braces; the fenced content must win
	response := "The page {shows} this:\n```json\n{\"currentPrice\": 100}\n```"
	payload, err := ExtractJSON(response)
	require.NoError(t, err)
	require.NotNil(t, numField(payload, "currentPrice"))
	assert.Equal(t, 100.0, *numField(payload, "currentPrice"))
}

func TestExtractJSONFailure(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no json at all", "I could not read the screenshot, sorry."},
		{"malformed json everywhere", "```json\n{broken\n```  {also broken}"},
		{"empty response", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractJSON(tt.response)
			require.Error(t, err)

			var ce *CollectError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, ErrKindParse, ce.Kind)
			assert.True(t, ce.Fatal, "parse failure must not be retried")
		})
	}
}

func TestExtractJSONFailureCarriesPrefix(t *testing.T) {
	long := "not json at all " + strings.Repeat("x", 500)
	_, err := ExtractJSON(long)
	var ce *CollectError
	require.True(t, errors.As(err, &ce))
	assert.LessOrEqual(t, len(ce.RawPrefix), 200)
	assert.Contains(t, ce.RawPrefix, "not json")
}

func TestNumField(t *testing.T) {
	payload := map[string]interface{}{
		"plain":    71500.0,
		"negative": -1.5,
		"string":   "1,234,567.5",
		"badStr":   "12.3B",
		"empty":    "",
		"null":     nil,
		"bool":     true,
	}

	require.NotNil(t, numField(payload, "plain"))
	assert.Equal(t, 71500.0, *numField(payload, "plain"))

	require.NotNil(t, numField(payload, "negative"))
	assert.Equal(t, -1.5, *numField(payload, "negative"))

	require.NotNil(t, numField(payload, "string"))
	assert.Equal(t, 1234567.5, *numField(payload, "string"))

	assert.Nil(t, numField(payload, "badStr"), "scale suffixes are the model's job, not ours")
	assert.Nil(t, numField(payload, "empty"))
	assert.Nil(t, numField(payload, "null"))
	assert.Nil(t, numField(payload, "bool"))
	assert.Nil(t, numField(payload, "missing"))
}

func TestNonNegative(t *testing.T) {
	neg, zero, pos := -1.0, 0.0, 5.0
	assert.Nil(t, nonNegative(nil))
	assert.Nil(t, nonNegative(&neg))
	assert.NotNil(t, nonNegative(&zero))
	assert.NotNil(t, nonNegative(&pos))
}

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// scriptedModel returns a canned response or error and counts its calls.
type scriptedModel struct {
	response string
	err      error
	calls    int
}

func (m *scriptedModel) ExtractFromImage(ctx context.Context, png []byte, instruction string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *scriptedModel) Provider() string { return "scripted" }

func ring(t *testing.T, models ...*scriptedModel) *KeyRing {
	t.Helper()
	callers := make([]VisionCaller, len(models))
	for i, m := range models {
		callers[i] = m
	}
	r, err := NewKeyRing(callers, arbor.NewLogger())
	require.NoError(t, err)
	return r
}

var errRateLimited = errors.New("googleapi: Error 429: quota exceeded")

func TestNewKeyRingRequiresModels(t *testing.T) {
	_, err := NewKeyRing(nil, arbor.NewLogger())
	assert.Error(t, err)
}

func TestExtractFirstKeySucceeds(t *testing.T) {
	first := &scriptedModel{response: `{"ok":1}`}
	second := &scriptedModel{response: `{"ok":2}`}
	r := ring(t, first, second)

	response, attempts, err := r.Extract(context.Background(), []byte("png"), "extract")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":1}`, response)
	require.Len(t, attempts, 1)
	assert.Equal(t, AttemptSuccess, attempts[0].Outcome)
	assert.Equal(t, 0, second.calls, "later keys must not be consulted")
}

func TestExtractRotatesPastRateLimitedKeys(t *testing.T) {
	limited1 := &scriptedModel{err: errRateLimited}
	limited2 := &scriptedModel{err: errors.New("RESOURCE_EXHAUSTED: too many requests")}
	healthy := &scriptedModel{response: `{"ok":3}`}
	r := ring(t, limited1, limited2, healthy)

	response, attempts, err := r.Extract(context.Background(), []byte("png"), "extract")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":3}`, response)

	require.Len(t, attempts, 3)
	assert.Equal(t, AttemptRateLimited, attempts[0].Outcome)
	assert.Equal(t, AttemptRateLimited, attempts[1].Outcome)
	assert.Equal(t, AttemptSuccess, attempts[2].Outcome)
	assert.Equal(t, 2, attempts[2].KeyIndex)
	assert.Equal(t, 1, limited1.calls)
	assert.Equal(t, 1, limited2.calls)
}

func TestExtractAllKeysRateLimited(t *testing.T) {
	models := []*scriptedModel{
		{err: errRateLimited},
		{err: errRateLimited},
		{err: errRateLimited},
	}
	r := ring(t, models...)

	_, attempts, err := r.Extract(context.Background(), []byte("png"), "extract")
	require.Error(t, err)

	var exhausted *RateExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Len(t, attempts, 3)
	for _, m := range models {
		assert.Equal(t, 1, m.calls, "each key is tried exactly once")
	}
}

func TestExtractFatalErrorAbortsRotation(t *testing.T) {
	fatal := &scriptedModel{err: errors.New("invalid request: image too large")}
	untouched := &scriptedModel{response: `{"ok":1}`}
	r := ring(t, fatal, untouched)

	_, attempts, err := r.Extract(context.Background(), []byte("png"), "extract")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "rate limited")

	require.Len(t, attempts, 1)
	assert.Equal(t, AttemptFailed, attempts[0].Outcome)
	assert.Equal(t, 0, untouched.calls, "fatal errors must not burn other keys")
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("status RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("daily quota exceeded")))
	assert.True(t, IsRateLimitError(errors.New("anthropic: rate_limit_error")))
	assert.False(t, IsRateLimitError(errors.New("invalid api key")))
	assert.False(t, IsRateLimitError(errors.New("context deadline exceeded")))
}

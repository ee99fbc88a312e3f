package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
)

// AttemptOutcome classifies one key's attempt in a rotation.
type AttemptOutcome string

const (
	// AttemptSuccess means the model returned a response on this key.
	AttemptSuccess AttemptOutcome = "success"
	// AttemptRateLimited means this key was rejected with a rate-limit-class
	// error and the ring moved to the next key.
	AttemptRateLimited AttemptOutcome = "rate-limited"
	// AttemptFailed means a non-rate-limit error aborted the rotation.
	AttemptFailed AttemptOutcome = "failed"
)

// KeyAttempt records the outcome of one key in a rotation, for diagnostics.
type KeyAttempt struct {
	KeyIndex int            `json:"keyIndex"`
	Provider string         `json:"provider"`
	Outcome  AttemptOutcome `json:"outcome"`
	Error    string         `json:"error,omitempty"`
}

// VisionCaller is the single-key extraction surface the ring rotates over.
// It matches interfaces.VisionModel without importing it, which keeps this
// package mockable from tests with a two-method fake.
type VisionCaller interface {
	ExtractFromImage(ctx context.Context, png []byte, instruction string) (string, error)
	Provider() string
}

// KeyRing tries a fixed, ordered list of single-key vision models. Keys are
// tried strictly in sequence: only a rate-limit-class error advances to the
// next key, because that is the only failure a different key plausibly
// fixes. Any other error, or exhausting the list, surfaces immediately.
// Rotation is sequential within one request so a single logical attempt
// never burns multiple keys' quota at once.
type KeyRing struct {
	models []VisionCaller
	logger arbor.ILogger
}

// NewKeyRing creates a ring over the provided single-key models, in order.
func NewKeyRing(models []VisionCaller, logger arbor.ILogger) (*KeyRing, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("key ring requires at least one vision model")
	}
	return &KeyRing{models: models, logger: logger}, nil
}

// Extract runs the rotation state machine for one extraction request:
// NextKey -> Attempt -> {Success | RateLimited -> NextKey | FatalError -> Abort}.
// It returns the model response, the per-key attempt log, and an error when
// no key produced a response.
func (r *KeyRing) Extract(ctx context.Context, png []byte, instruction string) (string, []KeyAttempt, error) {
	attempts := make([]KeyAttempt, 0, len(r.models))

	for i, model := range r.models {
		response, err := model.ExtractFromImage(ctx, png, instruction)
		if err == nil {
			attempts = append(attempts, KeyAttempt{
				KeyIndex: i,
				Provider: model.Provider(),
				Outcome:  AttemptSuccess,
			})
			if i > 0 {
				r.logger.Info().
					Int("key_index", i).
					Int("keys_skipped", i).
					Msg("Vision extraction succeeded after key rotation")
			}
			return response, attempts, nil
		}

		if IsRateLimitError(err) {
			attempts = append(attempts, KeyAttempt{
				KeyIndex: i,
				Provider: model.Provider(),
				Outcome:  AttemptRateLimited,
				Error:    err.Error(),
			})
			r.logger.Warn().
				Err(err).
				Int("key_index", i).
				Int("keys_remaining", len(r.models)-i-1).
				Msg("Vision API key rate limited, rotating")
			continue
		}

		// Non-rate-limit errors are not retried across keys: retrying a
		// malformed request on a fresh key is wasted work.
		attempts = append(attempts, KeyAttempt{
			KeyIndex: i,
			Provider: model.Provider(),
			Outcome:  AttemptFailed,
			Error:    err.Error(),
		})
		return "", attempts, fmt.Errorf("vision model call failed on key %d: %w", i, err)
	}

	return "", attempts, &RateExhaustedError{Attempts: len(r.models)}
}

// Size returns the number of keys in the ring.
func (r *KeyRing) Size() int {
	return len(r.models)
}

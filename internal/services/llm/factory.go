package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
)

// NewKeyRingFromConfig builds one single-key vision model per configured
// API key, for the configured provider, and wraps them in a KeyRing.
func NewKeyRingFromConfig(config common.VisionConfig, logger arbor.ILogger) (*KeyRing, error) {
	if len(config.APIKeys) == 0 {
		return nil, fmt.Errorf("vision collection requires at least one API key (vision.api_keys)")
	}

	models := make([]VisionCaller, 0, len(config.APIKeys))
	for i, key := range config.APIKeys {
		var (
			model VisionCaller
			err   error
		)
		switch config.Provider {
		case "claude":
			model, err = NewClaudeVision(config, key, logger)
		case "gemini", "":
			model, err = NewGeminiVision(config, key, logger)
		default:
			return nil, fmt.Errorf("unknown vision provider: %s", config.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vision model for key %d: %w", i, err)
		}
		models = append(models, model)
	}

	logger.Info().
		Str("provider", config.Provider).
		Str("model", config.Model).
		Int("key_count", len(models)).
		Msg("Vision key ring initialized")

	return NewKeyRing(models, logger)
}

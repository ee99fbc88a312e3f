package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/crossquote/internal/common"
)

// ClaudeVision implements the VisionModel interface for one Anthropic API key.
type ClaudeVision struct {
	client      anthropic.Client
	model       string
	temperature float32
	timeout     time.Duration
	maxTokens   int64
	logger      arbor.ILogger
}

// NewClaudeVision creates a Claude vision provider bound to a single API key.
func NewClaudeVision(config common.VisionConfig, apiKey string, logger arbor.ILogger) (*ClaudeVision, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set via CROSSQUOTE_VISION_API_KEYS or vision.api_keys in config)")
	}

	model := config.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &ClaudeVision{
		client:      client,
		model:       model,
		temperature: config.Temperature,
		timeout:     common.Duration(config.Timeout, 60*time.Second),
		maxTokens:   2048,
		logger:      logger,
	}, nil
}

// Provider names the backing model provider.
func (s *ClaudeVision) Provider() string {
	return "claude"
}

// ExtractFromImage sends the PNG plus the extraction instruction to the
// configured Claude model and returns its raw text response.
func (s *ClaudeVision) ExtractFromImage(ctx context.Context, png []byte, instruction string) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("image cannot be empty for vision extraction")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Str("model", s.model).
		Int("image_bytes", len(png)).
		Msg("Starting vision extraction")

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(png)),
				anthropic.NewTextBlock(instruction),
			),
		},
	}
	if s.temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.temperature))
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("vision extraction failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from vision model")
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Vision extraction completed")

	return response.String(), nil
}

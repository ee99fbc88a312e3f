package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/crossquote/internal/common"
)

// GeminiVision implements the VisionModel interface for one Gemini API key.
type GeminiVision struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      arbor.ILogger
}

// NewGeminiVision creates a Gemini vision provider bound to a single API key.
func NewGeminiVision(config common.VisionConfig, apiKey string, logger arbor.ILogger) (*GeminiVision, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set via CROSSQUOTE_VISION_API_KEYS or vision.api_keys in config)")
	}

	model := config.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &GeminiVision{
		client:      client,
		model:       model,
		temperature: config.Temperature,
		timeout:     common.Duration(config.Timeout, 60*time.Second),
		logger:      logger,
	}, nil
}

// Provider names the backing model provider.
func (s *GeminiVision) Provider() string {
	return "gemini"
}

// ExtractFromImage sends the PNG plus the extraction instruction to the
// configured Gemini model and returns its raw text response.
func (s *GeminiVision) ExtractFromImage(ctx context.Context, png []byte, instruction string) (string, error) {
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

	content := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			genai.NewPartFromBytes(png, "image/png"),
			genai.NewPartFromText(instruction),
		},
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.temperature),
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.model, []*genai.Content{content}, config)
	if err != nil {
		return "", fmt.Errorf("vision extraction failed: %w", err)
	}

	// Iterate candidates until non-empty text is found.
	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
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

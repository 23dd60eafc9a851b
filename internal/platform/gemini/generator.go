package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/languagesgo/stickerforge/internal/config"
	"github.com/languagesgo/stickerforge/internal/generation"
	"github.com/languagesgo/stickerforge/internal/storage"
	"google.golang.org/genai"
)

// contentCaller abstracts the Gemini Models API so tests can inject a fake.
// *genai.Models satisfies it.
type contentCaller interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// StickerGenerator implements the generation.Generator interface using
// Google's Gemini image generation API, storing the resulting image in an
// object store and returning its public URL.
type StickerGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// caller performs the actual Gemini API requests
	caller contentCaller

	// model is the name of the Gemini model to use
	model string

	// objects receives the generated image bytes
	objects storage.ObjectStore

	// keys produces object keys for uploaded stickers
	keys *storage.KeyGenerator
}

// NewStickerGenerator creates a new instance of StickerGenerator with the
// provided dependencies.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - config: LLM configuration containing API key, model name, and retry settings
//   - objects: The object store that holds generated sticker images
//   - keys: The key generator used to name uploaded objects
//
// Returns:
//   - A properly initialized StickerGenerator or an error if initialization fails
func NewStickerGenerator(
	ctx context.Context,
	logger *slog.Logger,
	config config.LLMConfig,
	objects storage.ObjectStore,
	keys *storage.KeyGenerator,
) (*StickerGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if objects == nil {
		return nil, errors.New("object store cannot be nil")
	}

	if keys == nil {
		return nil, errors.New("key generator cannot be nil")
	}

	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if config.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	generator := &StickerGenerator{
		logger:  logger,
		config:  config,
		caller:  client.Models,
		model:   config.ModelName,
		objects: objects,
		keys:    keys,
	}

	return generator, nil
}

// GenerateSticker produces a sticker image for the given vocabulary word and
// uploads it to the object store.
//
// The prompt is built deterministically from the word and category, the model
// call is retried with exponential backoff for transient failures, and the
// image bytes are uploaded under a key derived from the language and word.
// Nothing is uploaded when generation fails.
func (g *StickerGenerator) GenerateSticker(
	ctx context.Context,
	word, language, category string,
) (*generation.Sticker, error) {
	if strings.TrimSpace(word) == "" {
		return nil, fmt.Errorf("%w: word cannot be empty", generation.ErrGenerationFailed)
	}

	if strings.TrimSpace(language) == "" {
		return nil, fmt.Errorf("%w: language cannot be empty", generation.ErrGenerationFailed)
	}

	prompt := BuildStickerPrompt(word, category)

	g.logger.DebugContext(ctx, "Generating sticker image",
		"word", word,
		"language", language,
		"prompt_length", len(prompt))

	blob, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	key := g.keys.StickerKey(language, word)

	if err := g.objects.Upload(ctx, key, blob.Data, blob.MIMEType); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrUploadFailed, err)
	}

	sticker := &generation.Sticker{
		URL: g.objects.PublicURL(key),
		Key: key,
	}

	g.logger.InfoContext(ctx, "Sticker generated and stored",
		"word", word,
		"key", key,
		"bytes", len(blob.Data))

	return sticker, nil
}

// callWithRetry makes a call to the Gemini API with exponential backoff retry
// logic.
//
// It attempts to call the API up to config.MaxRetries times, using exponential
// backoff with jitter between retries for transient errors. Permanent errors
// (content blocked by safety filters, text-only responses) are returned
// immediately without retrying.
func (g *StickerGenerator) callWithRetry(ctx context.Context, prompt string) (*genai.Blob, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds <= 0 {
		baseDelaySeconds = 1
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	attempt := 0
	for attempt < maxRetries {
		attemptNum := attempt + 1

		resp, err := g.caller.GenerateContent(ctx, g.model, genai.Text(prompt), g.requestConfig())

		var blob *genai.Blob
		var isTransientError bool

		if err != nil {
			// API-level failures are assumed transient
			isTransientError = true
			g.logger.ErrorContext(ctx, "Gemini API call error",
				"error", err,
				"attempt", attemptNum)
		} else {
			blob, err = extractImage(resp)
			if err != nil {
				g.logger.WarnContext(ctx, "Gemini response unusable",
					"error", err,
					"attempt", attemptNum)
			}
		}

		if err == nil {
			return blob, nil
		}

		if attemptNum >= maxRetries {
			if isTransientError {
				g.logger.ErrorContext(ctx, "Maximum retry attempts reached",
					"max_retries", maxRetries)
				return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
					generation.ErrTransientFailure, maxRetries, err)
			}
			return nil, err
		}

		if !isTransientError {
			g.logger.WarnContext(ctx, "Non-transient error occurred, not retrying")
			return nil, err
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delaySeconds := backoffSeconds * jitterFactor
		delay := time.Duration(delaySeconds * float64(time.Second))

		g.logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attemptNum,
			"delay_seconds", delaySeconds)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			g.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}

		attempt++
	}

	return nil, fmt.Errorf("%w: failed after %d attempts",
		generation.ErrTransientFailure, attempt)
}

// requestConfig returns the generation parameters used for every sticker
// request. Both TEXT and IMAGE modalities are requested because image-capable
// Gemini models reject IMAGE-only requests.
func (g *StickerGenerator) requestConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](0.4),
		TopK:               genai.Ptr[float32](32),
		TopP:               genai.Ptr[float32](1),
		ResponseModalities: []string{"TEXT", "IMAGE"},
		SafetySettings: []*genai.SafetySetting{
			{
				Category:  genai.HarmCategoryHarassment,
				Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
			},
			{
				Category:  genai.HarmCategoryHateSpeech,
				Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
			},
			{
				Category:  genai.HarmCategorySexuallyExplicit,
				Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
			},
			{
				Category:  genai.HarmCategoryDangerousContent,
				Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
			},
		},
	}
}

// extractImage walks a Gemini response and returns the first inline image
// blob.
//
// A response with no image is classified by what it does contain: a safety
// finish reason maps to ErrContentBlocked, a text-only response maps to
// ErrTextInsteadOfImage, and anything else maps to ErrInvalidResponse. None
// of these are retryable.
func extractImage(resp *genai.GenerateContentResponse) (*genai.Blob, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	sawText := false
	for _, candidate := range resp.Candidates {
		if candidate == nil {
			continue
		}

		if candidate.FinishReason == genai.FinishReasonSafety {
			return nil, fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
		}

		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				if len(part.InlineData.Data) == 0 {
					return nil, fmt.Errorf("%w: empty image data", generation.ErrInvalidResponse)
				}
				return part.InlineData, nil
			}
			if part.Text != "" {
				sawText = true
			}
		}
	}

	if sawText {
		return nil, generation.ErrTextInsteadOfImage
	}

	return nil, fmt.Errorf("%w: no image part in response", generation.ErrInvalidResponse)
}

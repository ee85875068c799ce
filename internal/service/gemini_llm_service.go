package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mvhoang/Solvio/config"
	"github.com/mvhoang/Solvio/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// ErrLLMUnavailable wraps every failure of the upstream model call so that
// handlers can distinguish "the grader said no" from "the grader never ran".
var ErrLLMUnavailable = errors.New("llm gateway unavailable")

// TextGenerator is the narrow surface the answer grader and study-guide
// generator need. GeminiLLMService satisfies it; tests stub it.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type GeminiLLMService interface {
	TextGenerator
	SolveProblem(ctx context.Context, imageURL string, problemText string, mode string) (string, error)
}

type geminiLLMService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

func NewGeminiLLMService(cfg *config.Config) (GeminiLLMService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. GeminiLLMService will be non-functional.")
		return &geminiLLMService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	genModel := client.GenerativeModel("gemini-1.5-flash")
	return &geminiLLMService{client: genModel, cfg: cfg}, nil
}

// fetchImageData downloads the problem photo and determines its MIME type.
func fetchImageData(imageURL string) ([]byte, string, error) {
	if imageURL == "" {
		return nil, "", fmt.Errorf("image URL is empty")
	}
	resp, err := http.Get(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image from URL %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image (status %d) from URL %s", resp.StatusCode, imageURL)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data from URL %s: %w", imageURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	var mimeType string
	if contentType != "" {
		parsedMime, _, parseErr := mime.ParseMediaType(contentType)
		if parseErr == nil && strings.HasPrefix(parsedMime, "image/") {
			mimeType = parsedMime
		}
	}
	if mimeType == "" {
		ext := filepath.Ext(imageURL)
		mimeType = mime.TypeByExtension(ext)
		if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
			log.Warn().Str("url", imageURL).Str("ext", ext).Msg("Could not determine valid MIME type from extension or Content-Type.")
			return imageData, "", fmt.Errorf("unsupported or undeterminable image MIME type for %s", imageURL)
		}
	}
	supportedMIMETypes := map[string]bool{
		"image/png": true, "image/jpeg": true, "image/webp": true,
		"image/gif": true, "image/heic": true, "image/heif": true,
	}
	if !supportedMIMETypes[mimeType] {
		log.Warn().Str("mimeType", mimeType).Msg("MIME type determined but may not be supported by Gemini.")
	}
	return imageData, mimeType, nil
}

const stepFormatInstruction = `Break the solution into small teachable steps. Output ONE step per line, each line strictly in this format:
Step <n>: <what the student should do> | Hint: <a nudge without giving the answer away> | Answer: <the expected result of this step>
Do not output anything before the first step or after the last one.`

const similarSolutionInstruction = `First restate a SIMILAR problem of the same type with different numbers, then solve that similar problem completely, showing every stage of the work so the student can follow along and transfer the method to their own problem.`

// SolveProblem sends the problem photo (and any typed problem text) to the
// model and returns the raw solution text for the requested mode.
func (s *geminiLLMService) SolveProblem(ctx context.Context, imageURL string, problemText string, mode string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("%w: gemini client not initialized", ErrLLMUnavailable)
	}

	var parts []genai.Part
	if imageURL != "" {
		imageData, mimeType, err := fetchImageData(imageURL)
		if err != nil {
			log.Error().Err(err).Str("imageURL", imageURL).Msg("Failed to fetch problem image for solving")
			return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
		}
		parts = append(parts, genai.ImageData(mimeType, imageData))
	}

	var b strings.Builder
	b.WriteString("You are a patient math tutor. A student photographed the math problem shown above.\n")
	if problemText != "" {
		b.WriteString("The student also typed the problem out:\n---\n")
		b.WriteString(problemText)
		b.WriteString("\n---\n")
	}
	b.WriteString("\n")
	switch mode {
	case model.SolutionModeStepByStep:
		b.WriteString(stepFormatInstruction)
	case model.SolutionModeSimilar:
		b.WriteString(similarSolutionInstruction)
	default:
		return "", fmt.Errorf("unsupported solution mode: %s", mode)
	}
	parts = append(parts, genai.Text(b.String()))

	resp, err := s.client.GenerateContent(ctx, parts...)
	if err != nil {
		log.Error().Err(err).Str("mode", mode).Msg("Gemini API error while solving problem")
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	text := collectResponseText(resp)
	if text == "" {
		log.Warn().Msg("Gemini returned no text content for solve request.")
		return "", fmt.Errorf("%w: empty response", ErrLLMUnavailable)
	}
	return text, nil
}

// GenerateText runs a plain text prompt through the model.
func (s *geminiLLMService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("%w: gemini client not initialized", ErrLLMUnavailable)
	}

	resp, err := s.client.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error for text prompt")
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	text := collectResponseText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrLLMUnavailable)
	}
	return text, nil
}

func collectResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	return text
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const chefSystemInstruction = "You are an expert chef specializing in creating meal plans for specific dietary needs. " +
	"Generate creative, delicious meals with step-by-step instructions. " +
	"Return the response only in the requested JSON format."

// GeminiOption customizes the generative model used by GeminiClient.
type GeminiOption func(*genai.GenerativeModel)

// WithResponseSchema constrains the model output to the given schema.
func WithResponseSchema(schema *genai.Schema) GeminiOption {
	return func(m *genai.GenerativeModel) {
		m.ResponseSchema = schema
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) GeminiOption {
	return func(m *genai.GenerativeModel) {
		m.SetTemperature(t)
	}
}

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiClient creates a new Gemini API client in JSON response mode.
func NewGeminiClient(ctx context.Context, cfg *config.Config, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.GeminiModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(chefSystemInstruction)}}
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.9)
	for _, opt := range opts {
		opt(model)
	}

	return &GeminiClient{client: client, model: model, modelName: cfg.GeminiModel}, nil
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if isRateLimited(err) {
			return ContentResponse{}, fmt.Errorf("gemini: %w: %v", ErrRateLimited, err)
		}
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	usage := shared.TokenUsage{Model: c.modelName}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ContentResponse{Usage: usage}, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{Usage: usage}, fmt.Errorf("generated content is not text")
	}

	return ContentResponse{Content: sb.String(), Usage: usage}, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	var httpCoder interface{ HTTPCode() int }
	if errors.As(err, &httpCoder) && httpCoder.HTTPCode() == http.StatusTooManyRequests {
		return true
	}
	return status.Code(err) == codes.ResourceExhausted
}

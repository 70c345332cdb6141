package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiPricing is the Gemini 2.5 Flash price per 1M tokens.
var GeminiPricing = RequestPricing{Input: 0.30, Output: 2.50}

type GeminiProvider struct {
	client *genai.Client
	meter  usageMeter
}

func NewGeminiProvider(ctx context.Context, apiKey string, pricing RequestPricing) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		meter:  usageMeter{pricing: pricing},
	}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) GetUsage() Usage {
	return p.meter.get()
}

func (p *GeminiProvider) ResetUsage() {
	p.meter.reset()
}

func (p *GeminiProvider) AnalyzePhoto(ctx context.Context, imageData []byte, metadata *PhotoMetadata) (*PhotoAnalysis, error) {
	resizedData, err := ResizeImage(imageData, visionMaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPhotoQualityPrompt() + "\n\n" + buildUserMessage(metadata)},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}
		if result.UsageMetadata != nil {
			p.meter.track(int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
		}

		content := result.Text()
		if content == "" {
			return nil, errEmptyResponse
		}
		lastResponse = content

		analysis, err := ParseAnalysis(content)
		if err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{Role: "model", Parts: []*genai.Part{{Text: content}}},
				&genai.Content{Role: "user", Parts: []*genai.Part{{Text: retryFeedback(err)}}},
			)
			continue
		}
		return analysis, nil
	}

	return nil, fmt.Errorf("failed to parse analysis JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

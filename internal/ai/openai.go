package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatModel = openai.ChatModelGPT4_1Mini

// OpenAIPricing is the GPT-4.1-mini price per 1M tokens.
var OpenAIPricing = RequestPricing{Input: 0.40, Output: 1.60}

type OpenAIProvider struct {
	client *openai.Client
	meter  usageMeter
}

// NewOpenAIProvider creates an OpenAI vision backend. Extra client options
// (base URL, retries) are passed through.
func NewOpenAIProvider(apiKey string, pricing RequestPricing, opts ...option.RequestOption) *OpenAIProvider {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
		meter:  usageMeter{pricing: pricing},
	}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

func (p *OpenAIProvider) GetUsage() Usage {
	return p.meter.get()
}

func (p *OpenAIProvider) ResetUsage() {
	p.meter.reset()
}

func (p *OpenAIProvider) AnalyzePhoto(ctx context.Context, imageData []byte, metadata *PhotoMetadata) (*PhotoAnalysis, error) {
	resizedData, err := ResizeImage(imageData, visionMaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resizedData)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildPhotoQualityPrompt()),
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(buildUserMessage(metadata)),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "high",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(1200),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}
		p.meter.track(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

		content := resp.Choices[0].Message.Content
		if content == "" {
			return nil, errEmptyResponse
		}
		lastResponse = content

		analysis, err := ParseAnalysis(content)
		if err != nil {
			lastError = err
			messages = append(messages,
				openai.AssistantMessage(content),
				openai.UserMessage(retryFeedback(err)),
			)
			continue
		}
		return analysis, nil
	}

	return nil, fmt.Errorf("failed to parse analysis JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

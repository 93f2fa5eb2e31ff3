package extraction

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const visionSystemPrompt = `You are a document analyst for a personal archive.
Examine the supplied document images and respond with a single JSON object
containing exactly these fields:
  "text": the full text content you can read, transcribed faithfully
  "document_type": a short category such as "invoice", "letter", "tax form", "photo", "certificate"
  "key_entities": an array of the people, organizations, and places that appear
  "summary": two sentences at most describing what the document is
  "document_date": the document's own date in ISO format (YYYY-MM-DD), or "" if none is visible
  "relevancy_score": integer 0-1000, how relevant this is to household records
  "life_impact_score": integer 0-1000, how much long-term or legal weight it carries
  "detail_score": integer 0-1000, how complete and information-dense it is
  "archival_score": integer 0-1000, how important it is to preserve permanently
Respond with the JSON object only.`

// Observation is the structured judgment the vision model returns for a
// document.
type Observation struct {
	Text            string   `json:"text"`
	DocumentType    string   `json:"document_type"`
	KeyEntities     []string `json:"key_entities"`
	Summary         string   `json:"summary"`
	DocumentDate    string   `json:"document_date"`
	RelevancyScore  int      `json:"relevancy_score"`
	LifeImpactScore int      `json:"life_impact_score"`
	DetailScore     int      `json:"detail_score"`
	ArchivalScore   int      `json:"archival_score"`
}

// Usage reports provider token consumption for one vision call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// VisionClient sends document images to a vision model and returns the raw
// response content plus reported token usage. The pipeline owns parsing, so
// a malformed response can degrade instead of fail.
type VisionClient interface {
	Describe(ctx context.Context, images []string) (string, Usage, error)
}

type openAIVision struct {
	client    *openai.LLM
	maxTokens int
}

// NewVisionClient creates a VisionClient backed by an OpenAI-compatible
// chat completion endpoint.
func NewVisionClient(cfg *Config) (VisionClient, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}

	return &openAIVision{
		client:    client,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (v *openAIVision) Describe(ctx context.Context, images []string) (string, Usage, error) {
	parts := make([]llms.ContentPart, 0, len(images)+1)
	parts = append(parts, llms.TextPart("Analyze this document."))
	for _, uri := range images {
		parts = append(parts, llms.ImageURLPart(uri))
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, visionSystemPrompt),
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: parts,
		},
	}

	resp, err := v.client.GenerateContent(ctx, messages,
		llms.WithTemperature(0.0),
		llms.WithMaxTokens(v.maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", Usage{}, fmt.Errorf("%w: %w", ErrVisionRequest, err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("%w: empty response", ErrVisionRequest)
	}

	choice := resp.Choices[0]
	usage := Usage{
		PromptTokens:     generationInt(choice.GenerationInfo, "PromptTokens"),
		CompletionTokens: generationInt(choice.GenerationInfo, "CompletionTokens"),
	}

	return choice.Content, usage, nil
}

// generationInt reads a token count out of GenerationInfo, tolerating the
// numeric types different providers report.
func generationInt(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

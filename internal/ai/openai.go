package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	imageToolName        = "generate_image"
	defaultImageModel    = "dall-e-3"
)

// OpenAIProvider talks to the OpenAI chat completions and image
// generation endpoints. It covers both the standard family and the
// reasoning family, which names its token limit max_completion_tokens
// and rejects temperature.
type OpenAIProvider struct {
	BaseURL string
	APIKey  string
	Files   FileSource

	rest *restClient
}

func NewOpenAIProvider(baseURL, apiKey string, files FileSource) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{BaseURL: baseURL, APIKey: apiKey, Files: files, rest: newRESTClient()}
}

type chatCompletionResp struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var imageTool = map[string]any{
	"type": "function",
	"function": map[string]any{
		"name":        imageToolName,
		"description": "Generate an image from a natural-language prompt. Call this whenever the user asks for an image.",
		"parameters": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "Full description of the image to generate.",
				},
			},
			"required": []string{"prompt"},
		},
	},
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}

	body := map[string]any{
		"model":    req.Model,
		"messages": buildWireMessages(req, p.Files),
	}
	if Classify(req.Model) == KindOpenAICompletionTokens {
		body["max_completion_tokens"] = req.MaxTokens
	} else {
		body["max_tokens"] = req.MaxTokens
		if req.Temperature != nil {
			body["temperature"] = *req.Temperature
		}
	}
	if SupportsImageGeneration(req.Model) {
		body["tools"] = []any{imageTool}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := p.rest.send(ctx, p.BaseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + p.APIKey,
	}, b)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, truncate(resp.Body, 512))
	}

	var decoded chatCompletionResp
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("openai: unparseable response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, errors.New("openai: " + decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}

	msg := decoded.Choices[0].Message
	result := &Result{
		Text: msg.Content,
		Usage: Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
	}

	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != imageToolName {
			continue
		}
		var args struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil || args.Prompt == "" {
			log.Warn().Err(err).Msg("openai: bad image tool arguments, skipping")
			continue
		}
		data, err := p.GenerateImage(ctx, args.Prompt, defaultImageModel, "1024x1024", "standard")
		if err != nil {
			log.Error().Err(err).Msg("openai: image tool call failed")
			continue
		}
		result.Images = append(result.Images, GeneratedImage{Data: data, Mimetype: "image/png"})
	}
	return result, nil
}

type imageGenResp struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateImage runs the single-shot image endpoint and returns the
// decoded image bytes.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt, model, size, quality string) ([]byte, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	body := map[string]any{
		"model":  model,
		"prompt": prompt,
		"n":      1,
		"size":   size,
	}
	if quality != "" {
		body["quality"] = quality
	}
	if strings.HasPrefix(model, "dall-e") {
		body["response_format"] = "b64_json"
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := p.rest.send(ctx, p.BaseURL+"/images/generations", map[string]string{
		"Authorization": "Bearer " + p.APIKey,
	}, b)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: image status %d: %s", resp.StatusCode, truncate(resp.Body, 512))
	}

	var decoded imageGenResp
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, errors.New("openai: " + decoded.Error.Message)
	}
	if len(decoded.Data) == 0 || decoded.Data[0].B64JSON == "" {
		return nil, errors.New("openai: image response has no inline data")
	}
	return base64.StdEncoding.DecodeString(decoded.Data[0].B64JSON)
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

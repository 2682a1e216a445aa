package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider speaks the same chat completions shape as OpenAI
// against the OpenRouter gateway. OpenRouter accepts max_tokens and
// temperature for every model it fronts.
type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	SiteURL string
	AppName string
	Files   FileSource

	rest *restClient
}

func NewOpenRouterProvider(baseURL, apiKey, siteURL, appName string, files FileSource) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &OpenRouterProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		SiteURL: siteURL,
		AppName: appName,
		Files:   files,
		rest:    newRESTClient(),
	}
}

func (p *OpenRouterProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, errors.New("openrouter: api key is required")
	}

	body := map[string]any{
		"model":      req.Model,
		"messages":   buildWireMessages(req, p.Files),
		"max_tokens": req.MaxTokens,
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}
	if p.SiteURL != "" {
		headers["HTTP-Referer"] = p.SiteURL
	}
	if p.AppName != "" {
		headers["X-Title"] = p.AppName
	}

	resp, err := p.rest.send(ctx, strings.TrimRight(p.BaseURL, "/")+"/chat/completions", headers, b)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openrouter: status %d: %s", resp.StatusCode, truncate(resp.Body, 512))
	}

	var decoded chatCompletionResp
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("openrouter: unparseable response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, errors.New("openrouter: " + decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("openrouter: empty response")
	}

	return &Result{
		Text: decoded.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
	}, nil
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	geminiMaxAttempts = 5
	geminiRetryDelay  = 3 * time.Second
)

// GeminiProvider drives the Gemini SDK. The SDK chat object keeps no
// usable server-side session across requests, so the entire ordered
// history is replayed as content turns on every call. Image
// attachments go through the provider's file-upload primitive, PDFs
// are embedded as raw bytes parts.
type GeminiProvider struct {
	Client *genai.Client
	Files  FileSource

	maxAttempts int
	retryDelay  time.Duration
}

func NewGeminiProvider(client *genai.Client, files FileSource) *GeminiProvider {
	return &GeminiProvider{
		Client:      client,
		Files:       files,
		maxAttempts: geminiMaxAttempts,
		retryDelay:  geminiRetryDelay,
	}
}

// geminiTransient matches the SDK error strings for capacity (503)
// and quota (429) conditions. Anything else is non-retryable.
func geminiTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "503") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func geminiRole(role string) string {
	if role == "assistant" {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// turnParts flattens one message into Gemini parts. Unreadable or
// unsupported attachments are folded into the text, never dropped.
func (p *GeminiProvider) turnParts(ctx context.Context, m Message) []*genai.Part {
	atts := visionInputs(m.Attachments)

	parts := make([]*genai.Part, 0, len(atts)+2)
	if m.Content != "" {
		parts = append(parts, genai.NewPartFromText(m.Content))
	}

	var leftover []string
	for _, a := range atts {
		if !p.Files.Exists(a.Path) {
			leftover = append(leftover, a.Name)
			continue
		}
		switch {
		case strings.HasPrefix(a.Mimetype, "image/"):
			f, err := p.Client.Files.UploadFromPath(ctx, a.Path, &genai.UploadFileConfig{MIMEType: a.Mimetype})
			if err != nil {
				log.Warn().Err(err).Str("attachment", a.Name).Msg("gemini: file upload failed, demoting to text")
				leftover = append(leftover, a.Name)
				continue
			}
			parts = append(parts, genai.NewPartFromURI(f.URI, f.MIMEType))
		case a.Mimetype == "application/pdf":
			data, err := p.Files.Read(a.Path)
			if err != nil {
				leftover = append(leftover, a.Name)
				continue
			}
			parts = append(parts, genai.NewPartFromBytes(data, a.Mimetype))
		default:
			leftover = append(leftover, a.Name)
		}
	}

	if len(leftover) > 0 {
		parts = append(parts, genai.NewPartFromText("[Non-image attachments: "+strings.Join(leftover, ", ")+"]"))
	}
	if len(parts) == 0 {
		parts = append(parts, genai.NewPartFromText(""))
	}
	return parts
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if p.Client == nil {
		return nil, errors.New("gemini: client is nil")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("gemini: empty history")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(capabilitySystemMessage(req.Model), genai.RoleUser),
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.WantImage {
		config.ResponseModalities = []string{"TEXT", "IMAGE"}
	}

	history := make([]*genai.Content, 0, len(req.Messages)-1)
	for _, m := range req.Messages[:len(req.Messages)-1] {
		history = append(history, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: p.turnParts(ctx, m),
		})
	}

	last := req.Messages[len(req.Messages)-1]
	lastParts := p.turnParts(ctx, last)
	sendParts := make([]genai.Part, 0, len(lastParts))
	for _, part := range lastParts {
		sendParts = append(sendParts, *part)
	}

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		// The chat object is rebuilt per attempt; it carries no state
		// worth keeping once a call fails.
		var chat *genai.Chat
		chat, err = p.Client.Chats.Create(ctx, req.Model, config, history)
		if err == nil {
			resp, err = chat.SendMessage(ctx, sendParts...)
		}
		if err == nil {
			break
		}
		if !geminiTransient(err) {
			return nil, err
		}
		if attempt == p.maxAttempts {
			return nil, fmt.Errorf("gemini: retries exhausted: %w", err)
		}
		select {
		case <-time.After(p.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	result := &Result{}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini: empty response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mt := part.InlineData.MIMEType
			if mt == "" {
				mt = "image/png"
			}
			result.Images = append(result.Images, GeneratedImage{Data: part.InlineData.Data, Mimetype: mt})
		}
	}
	result.Text = text.String()
	return result, nil
}

// GenerateImage runs the Imagen single-shot path.
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt, model, aspectRatio string) ([]byte, error) {
	if p.Client == nil {
		return nil, errors.New("gemini: client is nil")
	}

	var resp *genai.GenerateImagesResponse
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		resp, err = p.Client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
			AspectRatio:    aspectRatio,
		})
		if err == nil {
			break
		}
		if !geminiTransient(err) {
			return nil, err
		}
		if attempt == p.maxAttempts {
			return nil, fmt.Errorf("gemini: retries exhausted: %w", err)
		}
		select {
		case <-time.After(p.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, errors.New("gemini: no image generated")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// StartVideo kicks off the asynchronous Veo operation.
func (p *GeminiProvider) StartVideo(ctx context.Context, model, prompt, aspectRatio string) (*genai.GenerateVideosOperation, error) {
	if p.Client == nil {
		return nil, errors.New("gemini: client is nil")
	}
	return p.Client.Models.GenerateVideos(ctx, model, prompt, nil, &genai.GenerateVideosConfig{
		AspectRatio: aspectRatio,
	})
}

// WaitVideo polls the operation at a fixed interval until done, then
// downloads the resulting bytes. Intended to run inside the job
// worker, never on a request handler.
func (p *GeminiProvider) WaitVideo(ctx context.Context, op *genai.GenerateVideosOperation, interval time.Duration) ([]byte, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	var err error
	for !op.Done {
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		op, err = p.Client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, err
		}
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, errors.New("gemini: video operation finished without output")
	}

	video := op.Response.GeneratedVideos[0]
	if _, err := p.Client.Files.Download(ctx, video.Video, nil); err != nil {
		return nil, err
	}
	if video.Video == nil || len(video.Video.VideoBytes) == 0 {
		return nil, errors.New("gemini: downloaded video is empty")
	}
	return video.Video.VideoBytes, nil
}

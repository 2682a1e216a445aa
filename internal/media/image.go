package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/storage"
)

// StyleAuto leaves the prompt untouched.
const StyleAuto = "auto"

const defaultImageModel = "dall-e-3"

// openaiSizes maps the ratio vocabulary to OpenAI's enumerated sizes.
var openaiSizes = map[string]string{
	"1:1":  "1024x1024",
	"16:9": "1792x1024",
	"9:16": "1024x1792",
}

// geminiRatios is Imagen's own aspect-ratio vocabulary.
var geminiRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
}

type openAIImager interface {
	GenerateImage(ctx context.Context, prompt, model, size, quality string) ([]byte, error)
}

type geminiImager interface {
	GenerateImage(ctx context.Context, prompt, model, aspectRatio string) ([]byte, error)
}

// ImageService is the single-shot image generation sub-flow. No chat
// history is involved; output lands in storage and the content store.
type ImageService struct {
	openai   openAIImager
	gemini   geminiImager
	files    storage.Store
	contents *content.Repo
}

func NewImageService(openai openAIImager, gemini geminiImager, files storage.Store, contents *content.Repo) *ImageService {
	return &ImageService{openai: openai, gemini: gemini, files: files, contents: contents}
}

// stylePrompt folds a non-auto style into the prompt text; the
// provider APIs have no structured style parameter.
func stylePrompt(prompt, style string) string {
	if style == "" || style == StyleAuto {
		return prompt
	}
	return fmt.Sprintf("In %s style: %s", style, prompt)
}

func openaiSize(ratio string) string {
	if s, ok := openaiSizes[ratio]; ok {
		return s
	}
	return "1024x1024"
}

func geminiRatio(ratio string) string {
	if geminiRatios[ratio] {
		return ratio
	}
	return "1:1"
}

func (s *ImageService) Generate(ctx context.Context, userID, prompt, model, style, ratio, quality string) (*content.GeneratedContent, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	if model == "" {
		model = defaultImageModel
	}

	full := stylePrompt(prompt, style)

	var data []byte
	var err error
	if ai.Classify(model) == ai.KindGemini {
		data, err = s.gemini.GenerateImage(ctx, full, model, geminiRatio(ratio))
	} else {
		data, err = s.openai.GenerateImage(ctx, full, model, openaiSize(ratio), quality)
	}
	if err != nil {
		return nil, err
	}

	path, err := s.files.Write(data, "png")
	if err != nil {
		return nil, err
	}

	rec := &content.GeneratedContent{
		UserID:      userID,
		ContentType: content.TypeImage,
		Prompt:      prompt,
		ModelUsed:   model,
		FilePath:    path,
		Style:       style,
		Ratio:       ratio,
	}
	if err := s.contents.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

package ai

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultChatTitle is used whenever title generation fails.
const DefaultChatTitle = "New Chat"

var imageIntentKeywords = []string{
	"image", "picture", "photo", "draw", "drawing", "illustration",
	"render", "logo", "icon", "sketch", "paint",
}

// Auxiliary bundles the best-effort helper calls: chat titling and
// image-intent detection. Both are result-or-fallback by contract;
// any failure of the model call triggers the fallback, never an
// error to the caller.
type Auxiliary struct {
	Provider Provider
	Model    string
}

func NewAuxiliary(p Provider, model string) *Auxiliary {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Auxiliary{Provider: p, Model: model}
}

func (a *Auxiliary) complete(ctx context.Context, prompt string) (string, error) {
	temp := 0.0
	res, err := a.Provider.Generate(ctx, Request{
		Model:       a.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
		MaxTokens:   30,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// TitleForPrompt summarizes the first user input into a short chat
// title, at most five words. Falls back to DefaultChatTitle.
func (a *Auxiliary) TitleForPrompt(ctx context.Context, input string) string {
	if a == nil || a.Provider == nil {
		return DefaultChatTitle
	}
	out, err := a.complete(ctx, "Summarize the following request as a chat title of at most 5 words. Reply with the title only, no quotes.\n\n"+input)
	if err != nil || out == "" {
		log.Debug().Err(err).Msg("title generation failed, using default")
		return DefaultChatTitle
	}
	out = strings.Trim(out, `"'`)
	words := strings.Fields(out)
	if len(words) > 5 {
		words = words[:5]
	}
	if len(words) == 0 {
		return DefaultChatTitle
	}
	return strings.Join(words, " ")
}

// WantsImage classifies whether a turn is asking for an image. The
// model call is the primary signal; on failure a keyword heuristic
// decides.
func (a *Auxiliary) WantsImage(ctx context.Context, input string) bool {
	if a != nil && a.Provider != nil {
		out, err := a.complete(ctx, "Does the following message ask for an image to be generated? Answer with exactly yes or no.\n\n"+input)
		if err == nil && out != "" {
			return strings.HasPrefix(strings.ToLower(out), "yes")
		}
		log.Debug().Err(err).Msg("image intent call failed, using keyword heuristic")
	}
	return keywordImageIntent(input)
}

func keywordImageIntent(input string) bool {
	lower := strings.ToLower(input)
	for _, kw := range imageIntentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

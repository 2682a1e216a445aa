package ai

import "strings"

// Kind is the provider family a model name routes to.
type Kind int

const (
	KindOpenAI Kind = iota
	KindOpenAICompletionTokens
	KindOpenRouter
	KindGemini
)

func (k Kind) String() string {
	switch k {
	case KindGemini:
		return "gemini"
	case KindOpenRouter:
		return "openrouter"
	case KindOpenAICompletionTokens:
		return "openai"
	default:
		return "openai"
	}
}

var geminiModels = map[string]bool{
	"gemini-2.5-pro":            true,
	"gemini-2.5-flash":          true,
	"gemini-2.0-flash":          true,
	"gemini-2.0-flash-lite":     true,
	"gemini-1.5-pro":            true,
	"gemini-1.5-flash":          true,
	"imagen-3.0-generate-002":   true,
	"imagen-4.0-generate-001":   true,
	"veo-3.0-fast-generate-001": true,
	"veo-2.0-generate-001":      true,
}

var openRouterPrefixes = []string{"deepseek/", "google/", "tngtech/", "qwen/", "z-ai/"}

const openRouterSuffix = ":free"

// Classify routes a model name to a provider family. Rules are ordered,
// first match wins; every input maps to exactly one kind.
func Classify(model string) Kind {
	if geminiModels[model] {
		return KindGemini
	}
	if strings.Contains(model, "/") || strings.HasSuffix(model, openRouterSuffix) {
		return KindOpenRouter
	}
	for _, p := range openRouterPrefixes {
		if strings.HasPrefix(model, p) {
			return KindOpenRouter
		}
	}
	if strings.HasPrefix(model, "o") || strings.HasPrefix(model, "gpt-5") {
		return KindOpenAICompletionTokens
	}
	return KindOpenAI
}

// SupportsVision reports whether a model accepts image/file inputs.
func SupportsVision(model string) bool {
	if strings.HasPrefix(model, "gpt-4o") {
		return true
	}
	if strings.HasPrefix(model, "o") || strings.HasPrefix(model, "gpt-5") {
		return true
	}
	return geminiModels[model] || strings.HasPrefix(model, "gemini")
}

// SupportsImageGeneration reports whether a model can produce images
// in the chat flow or the single-shot image path.
func SupportsImageGeneration(model string) bool {
	if strings.HasPrefix(model, "gpt-4") || strings.HasPrefix(model, "gpt-5") {
		return true
	}
	return strings.HasPrefix(model, "imagen")
}

package ai

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		model string
		want  Kind
	}{
		{"gemini-2.5-flash", KindGemini},
		{"imagen-3.0-generate-002", KindGemini},
		{"veo-3.0-fast-generate-001", KindGemini},
		{"deepseek/deepseek-r1:free", KindOpenRouter},
		{"meta-llama/llama-3-70b", KindOpenRouter},
		{"mistral-small:free", KindOpenRouter},
		{"o1-mini", KindOpenAICompletionTokens},
		{"o3", KindOpenAICompletionTokens},
		{"gpt-5-turbo", KindOpenAICompletionTokens},
		{"gpt-4o", KindOpenAI},
		{"gpt-4o-mini", KindOpenAI},
		{"gpt-3.5-turbo", KindOpenAI},
		{"", KindOpenAI},
		{"some-unknown-model", KindOpenAI},
	}
	for _, tc := range cases {
		if got := Classify(tc.model); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.model, got, tc.want)
		}
		// no hidden state: same input, same answer
		if got := Classify(tc.model); got != tc.want {
			t.Errorf("Classify(%q) second run = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestSupportsVision(t *testing.T) {
	for _, m := range []string{"gpt-4o", "gpt-4o-mini", "o1-mini", "gpt-5", "gemini-2.5-flash", "gemini-1.5-pro"} {
		if !SupportsVision(m) {
			t.Errorf("SupportsVision(%q) = false, want true", m)
		}
	}
	for _, m := range []string{"gpt-3.5-turbo", "deepseek/deepseek-r1:free", "llama3"} {
		if SupportsVision(m) {
			t.Errorf("SupportsVision(%q) = true, want false", m)
		}
	}
}

func TestSupportsImageGeneration(t *testing.T) {
	for _, m := range []string{"gpt-4o", "gpt-4", "gpt-5", "imagen-3.0-generate-002"} {
		if !SupportsImageGeneration(m) {
			t.Errorf("SupportsImageGeneration(%q) = false, want true", m)
		}
	}
	for _, m := range []string{"gpt-3.5-turbo", "gemini-2.5-flash", "o1-mini"} {
		if SupportsImageGeneration(m) {
			t.Errorf("SupportsImageGeneration(%q) = true, want false", m)
		}
	}
}

package ai

import "fmt"

// legacySystemSkipModel predates the capability preamble; requests for
// it are sent without a synthesized system message.
const legacySystemSkipModel = "gpt-3.5-turbo"

// capabilitySystemMessage describes what the currently selected model
// can do. It is synthesized per request and never persisted, so the
// description always matches the live model even when the history was
// written under a different one. Gemini chat models count as
// image-capable here: the orchestrator can enable the IMAGE response
// modality for them, so the preamble must not deny it.
func capabilitySystemMessage(model string) string {
	if SupportsImageGeneration(model) || Classify(model) == KindGemini {
		return fmt.Sprintf("You are a helpful assistant. The active model (%s) can generate images: when the user asks for an image, produce one instead of describing it.", model)
	}
	return fmt.Sprintf("You are a helpful assistant. The active model (%s) cannot generate images; if asked for one, explain that and answer in text.", model)
}

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// buildWireMessages converts the ordered history into the role-tagged
// message list used by OpenAI and OpenRouter. Order is preserved
// verbatim from the input.
func buildWireMessages(req Request, files FileSource) []wireMessage {
	visionCapable := SupportsVision(req.Model)

	out := make([]wireMessage, 0, len(req.Messages)+1)
	if req.Model != legacySystemSkipModel {
		out = append(out, wireMessage{Role: "system", Content: capabilitySystemMessage(req.Model)})
	}
	for _, m := range req.Messages {
		out = append(out, wireMessage{Role: m.Role, Content: messageContent(m, visionCapable, files)})
	}
	return out
}

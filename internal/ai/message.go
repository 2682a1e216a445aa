package ai

// Message is the canonical conversation record used everywhere past the
// ownership boundary. Handlers and repos convert their rows into this
// shape once; providers never see storage types.
type Message struct {
	Role        string
	Content     string
	Attachments []Attachment
}

// Attachment is stored file metadata attached to one message.
type Attachment struct {
	Name          string
	Path          string
	Mimetype      string
	FromAssistant bool
}

// Request carries one fully built turn to a provider.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
	// WantImage asks the provider to produce an image for this turn.
	// Only meaningful for providers without an explicit image tool.
	WantImage bool
}

// GeneratedImage is raw image output from a provider.
type GeneratedImage struct {
	Data     []byte
	Mimetype string
}

// Usage is token accounting as reported by the provider. Zero values
// mean the provider did not report usage.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is a provider's reply to one turn.
type Result struct {
	Text   string
	Images []GeneratedImage
	Usage  Usage
}

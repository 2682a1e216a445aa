package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/storage"
)

const (
	defaultModel       = "gpt-4o"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000

	// PlaceholderReply replaces the assistant's contribution when the
	// provider call fails; the user's turn is never lost.
	PlaceholderReply = "Sorry, I couldn't generate a response this time. Please try again."
)

// Aux is the best-effort helper surface: both calls must return a
// usable value on any internal failure.
type Aux interface {
	TitleForPrompt(ctx context.Context, input string) string
	WantsImage(ctx context.Context, input string) bool
}

type Service struct {
	repo      *Repo
	providers ai.Providers
	aux       Aux
	files     storage.Store
	contents  *content.Repo
}

func NewService(repo *Repo, providers ai.Providers, aux Aux, files storage.Store, contents *content.Repo) *Service {
	return &Service{repo: repo, providers: providers, aux: aux, files: files, contents: contents}
}

// UploadedFile is an inbound attachment already written to storage.
type UploadedFile struct {
	Name      string
	Path      string
	Mimetype  string
	SizeBytes int64
}

// GenerateInput is one inbound user turn.
type GenerateInput struct {
	UserID      string
	ChatID      string
	Input       string
	Model       string
	Temperature *float64
	MaxTokens   int
	Files       []UploadedFile
}

// GenerateResult is the response envelope for one completed turn.
type GenerateResult struct {
	ChatID        string       `json:"chat_id"`
	ChatTitle     string       `json:"chat_title"`
	Messages      []Message    `json:"messages"`
	GeneratedText string       `json:"generated_text"`
	ModelUsed     string       `json:"model_used"`
	Temperature   *float64     `json:"temperature"`
	UploadedFiles []Attachment `json:"uploaded_files"`
}

// GenerateText runs one full conversational turn: resolve or create
// the chat, persist the user message and its attachments, rebuild the
// history from durable state, dispatch to the routed provider, and
// persist exactly one assistant message. Provider failures degrade to
// a placeholder reply instead of aborting the turn.
func (s *Service) GenerateText(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	if in.Input == "" && len(in.Files) == 0 {
		return nil, errors.New("input is required")
	}
	model := in.Model
	if model == "" {
		model = defaultModel
	}
	if in.MaxTokens <= 0 {
		in.MaxTokens = defaultMaxTokens
	}
	kind := ai.Classify(model)

	temperature := in.Temperature
	if kind == ai.KindOpenAICompletionTokens {
		// The reasoning family rejects temperature; never record one.
		temperature = nil
	} else if temperature == nil {
		t := defaultTemperature
		temperature = &t
	}

	c, err := s.resolveChat(ctx, in, model, kind)
	if err != nil {
		return nil, err
	}

	userMsg, uploaded := s.persistUserTurn(ctx, c, in)
	if userMsg == nil {
		return nil, errors.New("failed to persist user message")
	}

	// Rebuild from durable state so the outbound call reflects what
	// was actually committed, including the turn above.
	history, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	req := ai.Request{
		Model:       model,
		Messages:    s.toProviderMessages(c, history),
		Temperature: temperature,
		MaxTokens:   in.MaxTokens,
	}
	if kind == ai.KindGemini {
		// Gemini has no image tool in the chat flow; classify intent
		// up front instead.
		req.WantImage = s.aux.WantsImage(ctx, in.Input)
	}

	text, images, usage := s.dispatch(ctx, kind, req)

	assistant, err := s.persistAssistantTurn(ctx, c, in, model, kind, temperature, text, images, usage)
	if err != nil {
		return nil, err
	}

	final, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		ChatID:        c.ID,
		ChatTitle:     c.Title,
		Messages:      final,
		GeneratedText: assistant.Content,
		ModelUsed:     model,
		Temperature:   temperature,
		UploadedFiles: uploaded,
	}, nil
}

// resolveChat reuses the supplied chat when it exists and is owned by
// the caller; anything else creates a fresh chat. Title generation is
// best effort and never aborts the flow.
func (s *Service) resolveChat(ctx context.Context, in GenerateInput, model string, kind ai.Kind) (*Chat, error) {
	if in.ChatID != "" {
		c, err := s.repo.GetChat(ctx, in.UserID, in.ChatID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	c := &Chat{
		UserID:         in.UserID,
		Title:          s.aux.TitleForPrompt(ctx, in.Input),
		DefaultModel:   model,
		Provider:       kind.String(),
		SupportsVision: ai.SupportsVision(model),
	}
	if err := s.repo.CreateChat(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// persistUserTurn commits the user message first (attachments need its
// id), then each attachment independently. A failed attachment is
// logged and skipped.
func (s *Service) persistUserTurn(ctx context.Context, c *Chat, in GenerateInput) (*Message, []Attachment) {
	userMsg := &Message{
		ChatID:  c.ID,
		UserID:  &in.UserID,
		Role:    "user",
		Content: in.Input,
	}
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		log.Error().Err(err).Str("chat_id", c.ID).Msg("persist user message failed")
		return nil, nil
	}

	uploaded := make([]Attachment, 0, len(in.Files))
	for _, f := range in.Files {
		att := &Attachment{
			MessageID: userMsg.ID,
			Name:      f.Name,
			Path:      f.Path,
			Mimetype:  f.Mimetype,
			SizeBytes: f.SizeBytes,
		}
		if err := s.repo.InsertAttachment(ctx, att); err != nil {
			log.Warn().Err(err).Str("name", f.Name).Msg("persist attachment failed, skipping")
			continue
		}
		uploaded = append(uploaded, *att)
	}
	return userMsg, uploaded
}

// toProviderMessages converts stored rows into the canonical provider
// records, injecting the chat's own system prompt up front when set.
func (s *Service) toProviderMessages(c *Chat, history []Message) []ai.Message {
	out := make([]ai.Message, 0, len(history)+1)
	if c.SystemPrompt != "" {
		out = append(out, ai.Message{Role: "system", Content: c.SystemPrompt})
	}
	for _, m := range history {
		pm := ai.Message{Role: m.Role, Content: m.Content}
		for _, a := range m.Attachments {
			pm.Attachments = append(pm.Attachments, ai.Attachment{
				Name:          a.Name,
				Path:          a.Path,
				Mimetype:      a.Mimetype,
				FromAssistant: m.Role == "assistant",
			})
		}
		out = append(out, pm)
	}
	return out
}

// dispatch routes to the provider and degrades any failure into the
// placeholder reply.
func (s *Service) dispatch(ctx context.Context, kind ai.Kind, req ai.Request) (string, []ai.GeneratedImage, ai.Usage) {
	prov, ok := s.providers[kind]
	if !ok {
		log.Error().Str("kind", kind.String()).Str("model", req.Model).Msg("no provider configured for kind")
		return PlaceholderReply, nil, ai.Usage{}
	}
	res, err := prov.Generate(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("model", req.Model).Msg("provider call failed, degrading to placeholder")
		return PlaceholderReply, nil, ai.Usage{}
	}
	return res.Text, res.Images, res.Usage
}

func imageExt(mimetype string) string {
	switch mimetype {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// persistAssistantTurn creates exactly one assistant message. When the
// provider produced images, the message body is stored empty and each
// image becomes an attachment plus a mirrored GeneratedContent record.
func (s *Service) persistAssistantTurn(ctx context.Context, c *Chat, in GenerateInput, model string, kind ai.Kind, temperature *float64, text string, images []ai.GeneratedImage, usage ai.Usage) (*Message, error) {
	body := text
	if len(images) > 0 {
		body = ""
	}

	assistant := &Message{
		ChatID:      c.ID,
		Role:        "assistant",
		Content:     body,
		ModelUsed:   model,
		Provider:    kind.String(),
		Temperature: temperature,
		MaxTokens:   &in.MaxTokens,
	}
	if usage.TotalTokens > 0 {
		assistant.PromptTokens = &usage.PromptTokens
		assistant.CompletionTokens = &usage.CompletionTokens
		assistant.TotalTokens = &usage.TotalTokens
	}
	if err := s.repo.InsertMessage(ctx, assistant); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	for i, img := range images {
		path, err := s.files.Write(img.Data, imageExt(img.Mimetype))
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("store generated image failed, skipping")
			continue
		}
		att := &Attachment{
			MessageID: assistant.ID,
			Name:      fmt.Sprintf("generated-%d.%s", i+1, imageExt(img.Mimetype)),
			Path:      path,
			Mimetype:  img.Mimetype,
			SizeBytes: int64(len(img.Data)),
		}
		if err := s.repo.InsertAttachment(ctx, att); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("persist generated image attachment failed, skipping")
			continue
		}
		if s.contents != nil {
			mirror := &content.GeneratedContent{
				UserID:      in.UserID,
				ContentType: content.TypeImage,
				Prompt:      in.Input,
				ModelUsed:   model,
				FilePath:    path,
			}
			if err := s.contents.Create(ctx, mirror); err != nil {
				log.Warn().Err(err).Msg("mirror generated image into content store failed")
			}
		}
	}
	return assistant, nil
}

// Chat management passthroughs used by the HTTP layer.

func (s *Service) CreateChat(ctx context.Context, userID, title string) (*Chat, error) {
	if title == "" {
		title = ai.DefaultChatTitle
	}
	c := &Chat{UserID: userID, Title: title}
	if err := s.repo.CreateChat(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*Chat, error) {
	return s.repo.GetChatWithMessages(ctx, userID, chatID)
}

func (s *Service) ListChats(ctx context.Context, userID, query string, includeArchived bool) ([]ChatListItem, error) {
	return s.repo.ListChats(ctx, userID, query, includeArchived)
}

type ChatUpdate struct {
	Title        *string `json:"title"`
	SystemPrompt *string `json:"system_prompt"`
	DefaultModel *string `json:"default_model"`
}

func (s *Service) UpdateChat(ctx context.Context, userID, chatID string, upd ChatUpdate) (*Chat, error) {
	c, err := s.repo.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.SystemPrompt != nil {
		c.SystemPrompt = *upd.SystemPrompt
	}
	if upd.DefaultModel != nil {
		c.DefaultModel = *upd.DefaultModel
	}
	if err := s.repo.UpdateChat(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SetArchived(ctx context.Context, userID, chatID string, archived bool) error {
	return s.repo.SetArchived(ctx, userID, chatID, archived)
}

// DeleteChat removes the chat and its rows, then removes the stored
// files best effort: a failed file delete is logged, not retried.
func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	paths, err := s.repo.DeleteChat(ctx, userID, chatID)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := s.files.Delete(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("delete attachment file failed")
		}
	}
	return nil
}

func (s *Service) GetAttachment(ctx context.Context, userID, attachmentID string) (*Attachment, error) {
	return s.repo.GetAttachmentForUser(ctx, userID, attachmentID)
}

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/storage"
)

type fakeProvider struct {
	last ai.Request
	res  *ai.Result
	err  error
}

func (p *fakeProvider) Generate(ctx context.Context, req ai.Request) (*ai.Result, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	if p.res != nil {
		return p.res, nil
	}
	return &ai.Result{Text: "ok", Usage: ai.Usage{PromptTokens: 2, CompletionTokens: 1, TotalTokens: 3}}, nil
}

type fakeAux struct {
	title     string
	wantImage bool
}

func (a *fakeAux) TitleForPrompt(ctx context.Context, input string) string { return a.title }
func (a *fakeAux) WantsImage(ctx context.Context, input string) bool       { return a.wantImage }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Chat{}, &Message{}, &Attachment{}, &content.GeneratedContent{}, &content.Project{}, &content.VideoJob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, prov ai.Provider, aux Aux) (*Service, *Repo, *content.Repo) {
	t.Helper()
	db := openTestDB(t)
	repo := NewRepo(db)
	contents := content.NewRepo(db)
	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	providers := ai.Providers{
		ai.KindOpenAI:                 prov,
		ai.KindOpenAICompletionTokens: prov,
		ai.KindOpenRouter:             prov,
		ai.KindGemini:                 prov,
	}
	return NewService(repo, providers, aux, files, contents), repo, contents
}

func TestGenerateTextCreatesChatAndBothTurns(t *testing.T) {
	prov := &fakeProvider{}
	svc, _, _ := newTestService(t, prov, &fakeAux{title: "Greeting Chat"})

	res, err := svc.GenerateText(context.Background(), GenerateInput{
		UserID: "u1",
		Input:  "hello",
		Model:  "gpt-4o",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.ChatID == "" {
		t.Fatal("expected a new chat id")
	}
	if res.ChatTitle != "Greeting Chat" {
		t.Errorf("title = %q", res.ChatTitle)
	}
	if res.ModelUsed != "gpt-4o" {
		t.Errorf("model_used = %q", res.ModelUsed)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(res.Messages))
	}
	if res.Messages[0].Role != "user" || res.Messages[0].Content != "hello" {
		t.Errorf("unexpected user message %+v", res.Messages[0])
	}
	if res.Messages[1].Role != "assistant" || res.Messages[1].Content != "ok" {
		t.Errorf("unexpected assistant message %+v", res.Messages[1])
	}
	if res.Messages[1].TotalTokens == nil || *res.Messages[1].TotalTokens != 3 {
		t.Errorf("usage not persisted: %+v", res.Messages[1])
	}
	if res.GeneratedText != "ok" {
		t.Errorf("generated_text = %q", res.GeneratedText)
	}
}

func TestGenerateTextPlaceholderOnProviderFailure(t *testing.T) {
	prov := &fakeProvider{err: errors.New("status 500")}
	svc, _, _ := newTestService(t, prov, &fakeAux{title: "T"})

	res, err := svc.GenerateText(context.Background(), GenerateInput{
		UserID: "u1",
		Input:  "hello",
		Model:  "gpt-4o",
	})
	if err != nil {
		t.Fatalf("a failed provider call must not fail the turn: %v", err)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("expected user + degraded assistant turn, got %d messages", len(res.Messages))
	}
	if res.Messages[1].Content != PlaceholderReply {
		t.Errorf("assistant content = %q, want placeholder", res.Messages[1].Content)
	}
}

func TestGenerateTextReusesOwnedChat(t *testing.T) {
	prov := &fakeProvider{}
	svc, _, _ := newTestService(t, prov, &fakeAux{title: "T"})

	first, err := svc.GenerateText(context.Background(), GenerateInput{UserID: "u1", Input: "one", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	second, err := svc.GenerateText(context.Background(), GenerateInput{UserID: "u1", ChatID: first.ChatID, Input: "two", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if second.ChatID != first.ChatID {
		t.Errorf("expected chat reuse, got %s then %s", first.ChatID, second.ChatID)
	}
	if len(second.Messages) != 4 {
		t.Errorf("expected 4 messages after two turns, got %d", len(second.Messages))
	}
}

func TestGenerateTextForeignChatIDCreatesFreshChat(t *testing.T) {
	prov := &fakeProvider{}
	svc, _, _ := newTestService(t, prov, &fakeAux{title: "T"})

	other, err := svc.GenerateText(context.Background(), GenerateInput{UserID: "owner", Input: "hi", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("setup turn: %v", err)
	}

	res, err := svc.GenerateText(context.Background(), GenerateInput{UserID: "intruder", ChatID: other.ChatID, Input: "mine?", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.ChatID == other.ChatID {
		t.Error("a chat id owned by another user must not be reused")
	}
	if len(res.Messages) != 2 {
		t.Errorf("expected a fresh 2-message chat, got %d", len(res.Messages))
	}
}

func TestGenerateTextHistoryOrderPreserved(t *testing.T) {
	prov := &fakeProvider{}
	svc, repo, _ := newTestService(t, prov, &fakeAux{title: "T"})

	c := &Chat{UserID: "u1", Title: "seeded"}
	if err := repo.CreateChat(context.Background(), c); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	// strictly increasing timestamps, all in the past so the live
	// "delta" turn lands last
	base := time.Now().Add(-time.Minute)
	for i, text := range []string{"alpha", "beta", "gamma"} {
		uid := "u1"
		if err := repo.InsertMessage(context.Background(), &Message{
			ChatID:    c.ID,
			UserID:    &uid,
			Role:      "user",
			Content:   text,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_, err := svc.GenerateText(context.Background(), GenerateInput{UserID: "u1", ChatID: c.ID, Input: "delta", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("final: %v", err)
	}

	var got []string
	for _, m := range prov.last.Messages {
		if m.Role == "user" {
			got = append(got, m.Content)
		}
	}
	want := []string{"alpha", "beta", "gamma", "delta"}
	if len(got) != len(want) {
		t.Fatalf("provider saw %d user messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestGenerateTextCompletionTokensFamilyOmitsTemperature(t *testing.T) {
	prov := &fakeProvider{}
	svc, _, _ := newTestService(t, prov, &fakeAux{title: "T"})

	temp := 0.9
	res, err := svc.GenerateText(context.Background(), GenerateInput{
		UserID:      "u1",
		Input:       "reason about this",
		Model:       "o1-mini",
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if prov.last.Temperature != nil {
		t.Error("temperature must not reach a completion-tokens provider request")
	}
	if res.Temperature != nil {
		t.Error("response temperature should be nil for the completion-tokens family")
	}
	if res.Messages[1].Temperature != nil {
		t.Error("persisted assistant temperature should be nil")
	}
}

func TestGenerateTextImagesStoredWithEmptyBody(t *testing.T) {
	prov := &fakeProvider{res: &ai.Result{
		Text:   "here is your image",
		Images: []ai.GeneratedImage{{Data: []byte{1, 2, 3}, Mimetype: "image/png"}},
	}}
	svc, _, contents := newTestService(t, prov, &fakeAux{title: "T", wantImage: true})

	res, err := svc.GenerateText(context.Background(), GenerateInput{
		UserID: "u1",
		Input:  "draw a cat",
		Model:  "gemini-2.5-flash",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !prov.last.WantImage {
		t.Error("gemini request should carry the image intent flag")
	}
	assistant := res.Messages[len(res.Messages)-1]
	if assistant.Content != "" {
		t.Errorf("image turns store empty text, got %q", assistant.Content)
	}
	if len(assistant.Attachments) != 1 {
		t.Fatalf("expected 1 generated attachment, got %d", len(assistant.Attachments))
	}
	if assistant.Attachments[0].Mimetype != "image/png" {
		t.Errorf("attachment mimetype = %q", assistant.Attachments[0].Mimetype)
	}

	mirrored, err := contents.List(context.Background(), "u1", content.TypeImage)
	if err != nil {
		t.Fatalf("list contents: %v", err)
	}
	if len(mirrored) != 1 {
		t.Fatalf("expected 1 mirrored content row, got %d", len(mirrored))
	}
	if mirrored[0].Prompt != "draw a cat" {
		t.Errorf("mirrored prompt = %q", mirrored[0].Prompt)
	}
}

func TestListMessagesIsIdempotent(t *testing.T) {
	prov := &fakeProvider{}
	svc, repo, _ := newTestService(t, prov, &fakeAux{title: "T"})

	res, err := svc.GenerateText(context.Background(), GenerateInput{UserID: "u1", Input: "hello", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	a, err := repo.ListMessages(context.Background(), res.ChatID)
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	b, err := repo.ListMessages(context.Background(), res.ChatID)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Content != b[i].Content || !a[i].CreatedAt.Equal(b[i].CreatedAt) {
			t.Errorf("message %d differs between reads", i)
		}
	}
}

func TestDeleteChatCascades(t *testing.T) {
	prov := &fakeProvider{res: &ai.Result{
		Images: []ai.GeneratedImage{{Data: []byte{7}, Mimetype: "image/png"}},
	}}
	svc, repo, _ := newTestService(t, prov, &fakeAux{title: "T", wantImage: true})

	res, err := svc.GenerateText(context.Background(), GenerateInput{UserID: "u1", Input: "draw", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := svc.DeleteChat(context.Background(), "u1", res.ChatID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetChat(context.Background(), "u1", res.ChatID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("chat should be gone, got err=%v", err)
	}
	msgs, err := repo.ListMessages(context.Background(), res.ChatID)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages should cascade on chat delete, found %d", len(msgs))
	}
}

func TestSearchSnippetKeepsRuneBoundaries(t *testing.T) {
	svc, repo, _ := newTestService(t, &fakeProvider{}, &fakeAux{title: "T"})

	c := &Chat{UserID: "u-snippet", Title: "notes"}
	if err := repo.CreateChat(context.Background(), c); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	// 120 multi-byte runes with the query term up front
	long := "héllo " + strings.Repeat("é", 114)
	uid := "u-snippet"
	if err := repo.InsertMessage(context.Background(), &Message{
		ChatID:  c.ID,
		UserID:  &uid,
		Role:    "user",
		Content: long,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	items, err := svc.ListChats(context.Background(), "u-snippet", "héllo", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(items))
	}
	snippet := items[0].Snippet
	if !utf8.ValidString(snippet) {
		t.Fatalf("snippet is not valid UTF-8: %q", snippet)
	}
	if want := string([]rune(long)[:100]) + "..."; snippet != want {
		t.Errorf("snippet = %q, want first 100 runes plus ellipsis", snippet)
	}
}

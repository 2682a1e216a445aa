package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/auth"
	"github.com/atelier-ai/atelier/internal/chat"
	"github.com/atelier-ai/atelier/internal/config"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/httpapi/handlers"
	"github.com/atelier-ai/atelier/internal/models"
	"github.com/atelier-ai/atelier/internal/storage"
)

type fakeProvider struct{}

func (p *fakeProvider) Generate(ctx context.Context, req ai.Request) (*ai.Result, error) {
	return &ai.Result{Text: "hello back", Usage: ai.Usage{TotalTokens: 3}}, nil
}

type fakeAux struct{}

func (a *fakeAux) TitleForPrompt(ctx context.Context, input string) string { return "Test Chat" }
func (a *fakeAux) WantsImage(ctx context.Context, input string) bool       { return false }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Plan{}, &models.User{},
		&chat.Chat{}, &chat.Message{}, &chat.Attachment{},
		&content.GeneratedContent{}, &content.Project{}, &content.VideoJob{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	prov := &fakeProvider{}
	providers := ai.Providers{
		ai.KindOpenAI:                 prov,
		ai.KindOpenAICompletionTokens: prov,
		ai.KindOpenRouter:             prov,
		ai.KindGemini:                 prov,
	}
	contents := content.NewRepo(db)
	chatSvc := chat.NewService(chat.NewRepo(db), providers, &fakeAux{}, files, contents)

	cfg := config.Config{JWTSecret: "test-secret"}
	h := handlers.NewHandler(db, cfg, nil, files, chatSvc, nil, nil, contents)
	return NewRouter(cfg, h), db, cfg
}

func seedUser(t *testing.T, db *gorm.DB, cfg config.Config, email string) (string, string) {
	t.Helper()
	u := models.User{Email: email, Username: "tester-" + email, PasswordHash: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := auth.SignJWT(u.ID, cfg.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return u.ID, token
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, w.Body.String())
	}
	return w, env
}

func TestGenerateTextEndToEnd(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	_, token := seedUser(t, db, cfg, "e2e@example.com")

	w, env := doJSON(t, r, http.MethodPost, "/api/ai/generate-text", token, gin.H{
		"input": "hello",
		"model": "gpt-4o",
	})
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("status=%d code=%d msg=%s", w.Code, env.Code, env.Message)
	}

	var res struct {
		ChatID        string `json:"chat_id"`
		ChatTitle     string `json:"chat_title"`
		GeneratedText string `json:"generated_text"`
		Messages      []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.ChatID == "" {
		t.Fatalf("chat_id empty")
	}
	if res.ChatTitle != "Test Chat" {
		t.Fatalf("chat_title = %q", res.ChatTitle)
	}
	if res.GeneratedText != "hello back" {
		t.Fatalf("generated_text = %q", res.GeneratedText)
	}
	if len(res.Messages) != 2 || res.Messages[0].Role != "user" || res.Messages[1].Role != "assistant" {
		t.Fatalf("messages = %+v", res.Messages)
	}

	// the chat is visible in the listing afterwards
	w, env = doJSON(t, r, http.MethodGet, "/api/chats", token, nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("list status=%d code=%d", w.Code, env.Code)
	}
	var list struct {
		Chats []struct {
			ID string `json:"id"`
		} `json:"chats"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	found := false
	for _, c := range list.Chats {
		if c.ID == res.ChatID {
			found = true
		}
	}
	if !found {
		t.Fatalf("chat %s not in listing", res.ChatID)
	}
}

func TestGenerateTextMultipartAttachmentOnly(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	_, token := seedUser(t, db, cfg, "upload@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", "photo.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte{0x89, 'P', 'N', 'G'}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := mw.WriteField("model", "gpt-4o"); err != nil {
		t.Fatalf("field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-text", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, w.Body.String())
	}
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("attachment-only turn: status=%d code=%d msg=%s", w.Code, env.Code, env.Message)
	}

	var res struct {
		Messages []struct {
			Role        string `json:"role"`
			Attachments []struct {
				Name string `json:"name"`
			} `json:"attachments"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("messages = %d, want user + assistant", len(res.Messages))
	}
	if len(res.Messages[0].Attachments) != 1 || res.Messages[0].Attachments[0].Name != "photo.png" {
		t.Fatalf("user attachments = %+v", res.Messages[0].Attachments)
	}
}

func TestGenerateTextRejectsBlankInput(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	_, token := seedUser(t, db, cfg, "blank@example.com")

	w, env := doJSON(t, r, http.MethodPost, "/api/ai/generate-text", token, gin.H{"input": "   "})
	if w.Code != http.StatusBadRequest || env.Code == 0 {
		t.Fatalf("status=%d code=%d", w.Code, env.Code)
	}
}

func TestGenerateTextRequiresAuth(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/ai/generate-text", "", gin.H{"input": "hello"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestChatOwnershipIsolation(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	_, tokenA := seedUser(t, db, cfg, "alice@example.com")
	_, tokenB := seedUser(t, db, cfg, "bob@example.com")

	_, env := doJSON(t, r, http.MethodPost, "/api/chats", tokenA, gin.H{"title": "Alice's"})
	if env.Code != 0 {
		t.Fatalf("create chat code=%d", env.Code)
	}
	var created struct {
		Chat struct {
			ID string `json:"id"`
		} `json:"chat"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w, _ := doJSON(t, r, http.MethodGet, "/api/chats/"+created.Chat.ID, tokenB, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign chat status = %d", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodGet, "/api/chats/"+created.Chat.ID, tokenA, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner chat status = %d", w.Code)
	}
}

func TestProjectFlow(t *testing.T) {
	r, db, cfg := newTestRouter(t)
	uid, token := seedUser(t, db, cfg, "proj@example.com")

	_, env := doJSON(t, r, http.MethodPost, "/api/projects", token, gin.H{"name": "Moodboard"})
	if env.Code != 0 {
		t.Fatalf("create project code=%d", env.Code)
	}
	var created struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec := content.GeneratedContent{UserID: uid, ContentType: content.TypeImage, Prompt: "a cat", FilePath: "x.png"}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed content: %v", err)
	}

	w, env := doJSON(t, r, http.MethodPost, "/api/projects/"+created.Project.ID+"/contents/"+rec.ID, token, nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("attach status=%d code=%d", w.Code, env.Code)
	}

	_, env = doJSON(t, r, http.MethodGet, "/api/projects/"+created.Project.ID, token, nil)
	var got struct {
		Project struct {
			Contents []struct {
				ID string `json:"id"`
			} `json:"contents"`
		} `json:"project"`
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Project.Contents) != 1 || got.Project.Contents[0].ID != rec.ID {
		t.Fatalf("project contents = %+v", got.Project.Contents)
	}
}

package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/atelier-ai/atelier/internal/ai"
	"github.com/atelier-ai/atelier/internal/chat"
	"github.com/atelier-ai/atelier/internal/config"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/db"
	"github.com/atelier-ai/atelier/internal/httpapi"
	"github.com/atelier-ai/atelier/internal/httpapi/handlers"
	"github.com/atelier-ai/atelier/internal/media"
	"github.com/atelier-ai/atelier/internal/storage"
	"github.com/atelier-ai/atelier/internal/store/rabbitmq"
	"github.com/atelier-ai/atelier/internal/store/redisstore"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	files, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	ctx := context.Background()
	gclient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("genai client init failed")
	}

	openaiProv := ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, files)
	routerProv := ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName, files)
	geminiProv := ai.NewGeminiProvider(gclient, files)

	providers := ai.Providers{
		ai.KindOpenAI:                 openaiProv,
		ai.KindOpenAICompletionTokens: openaiProv,
		ai.KindOpenRouter:             routerProv,
		ai.KindGemini:                 geminiProv,
	}
	aux := ai.NewAuxiliary(openaiProv, cfg.AuxModel)

	contents := content.NewRepo(gdb)
	chatSvc := chat.NewService(chat.NewRepo(gdb), providers, aux, files, contents)
	imageSvc := media.NewImageService(openaiProv, geminiProv, files, contents)

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit connect failed")
	}
	defer pub.Close()

	videoSvc := media.NewVideoService(geminiProv, pub, files, contents)

	h := handlers.NewHandler(gdb, cfg, rds, files, chatSvc, imageSvc, videoSvc, contents)
	r := httpapi.NewRouter(cfg, h)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/chat"
	"github.com/atelier-ai/atelier/internal/common"
	"github.com/atelier-ai/atelier/internal/config"
	"github.com/atelier-ai/atelier/internal/content"
	"github.com/atelier-ai/atelier/internal/email"
	"github.com/atelier-ai/atelier/internal/httpapi/middleware"
	"github.com/atelier-ai/atelier/internal/media"
	"github.com/atelier-ai/atelier/internal/storage"
	"github.com/atelier-ai/atelier/internal/store/redisstore"
)

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Redis       *redisstore.Store
	SMTPSetting email.SMTPConfig
	Files       storage.Store
	ChatSvc     *chat.Service
	ImageSvc    *media.ImageService
	VideoSvc    *media.VideoService
	Contents    *content.Repo
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, files storage.Store,
	chatSvc *chat.Service, imageSvc *media.ImageService, videoSvc *media.VideoService,
	contents *content.Repo) *Handler {
	return &Handler{
		DB:    db,
		Cfg:   cfg,
		Redis: rds,
		SMTPSetting: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
		Files:    files,
		ChatSvc:  chatSvc,
		ImageSvc: imageSvc,
		VideoSvc: videoSvc,
		Contents: contents,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func userIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

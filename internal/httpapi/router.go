package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/atelier-ai/atelier/internal/common"
	"github.com/atelier-ai/atelier/internal/config"
	"github.com/atelier-ai/atelier/internal/httpapi/handlers"
	"github.com/atelier-ai/atelier/internal/httpapi/middleware"
)

func NewRouter(cfg config.Config, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	api := r.Group("/api")

	api.GET("/ping", h.Ping)

	// registration flow
	api.POST("/captcha", h.SendCaptcha)
	api.POST("/users", h.CreateUser)
	api.POST("/login", h.Login)

	authed := api.Group("/")
	authed.Use(middleware.AuthRequired(cfg.JWTSecret))

	authed.GET("/me", h.Me)
	authed.GET("/plans", h.ListPlans)

	// chats
	authed.POST("/chats", h.CreateChat)
	authed.GET("/chats", h.ListChats)
	authed.GET("/chats/:chat_id", h.GetChat)
	authed.PUT("/chats/:chat_id", h.UpdateChat)
	authed.PATCH("/chats/:chat_id/archive", h.ArchiveChat)
	authed.PATCH("/chats/:chat_id/unarchive", h.UnarchiveChat)
	authed.DELETE("/chats/:chat_id", h.DeleteChat)
	authed.GET("/chats/attachments/:attachment_id", h.GetAttachment)

	// generation
	authed.POST("/ai/generate-text", h.GenerateText)
	authed.POST("/ai/generate-image", h.GenerateImage)
	authed.POST("/ai/generate-video", h.GenerateVideo)
	authed.GET("/ai/video-jobs/:job_id", h.GetVideoJob)

	// generated contents and projects
	authed.GET("/contents", h.ListContents)
	authed.POST("/projects", h.CreateProject)
	authed.GET("/projects", h.ListProjects)
	authed.GET("/projects/:project_id", h.GetProject)
	authed.PUT("/projects/:project_id", h.UpdateProject)
	authed.DELETE("/projects/:project_id", h.DeleteProject)
	authed.POST("/projects/:project_id/contents/:content_id", h.AttachContent)
	authed.DELETE("/projects/:project_id/contents/:content_id", h.DetachContent)

	return r
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/chat"
	"github.com/atelier-ai/atelier/internal/common"
)

type createChatReq struct {
	Title string `json:"title"`
}

func (h *Handler) CreateChat(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createChatReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	ch, err := h.ChatSvc.CreateChat(c.Request.Context(), uid, req.Title)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create chat")
		return
	}

	common.OK(c, gin.H{"chat": ch})
}

func (h *Handler) ListChats(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	query := c.Query("q")
	includeArchived := c.Query("include_archived") == "true"

	items, err := h.ChatSvc.ListChats(c.Request.Context(), uid, query, includeArchived)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list chats")
		return
	}

	common.OK(c, gin.H{"chats": items})
}

func (h *Handler) GetChat(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	ch, err := h.ChatSvc.GetChat(c.Request.Context(), uid, c.Param("chat_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40402, "chat not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"chat": ch})
}

func (h *Handler) UpdateChat(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req chat.ChatUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	ch, err := h.ChatSvc.UpdateChat(c.Request.Context(), uid, c.Param("chat_id"), req)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40402, "chat not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"chat": ch})
}

func (h *Handler) setArchived(c *gin.Context, archived bool) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if err := h.ChatSvc.SetArchived(c.Request.Context(), uid, c.Param("chat_id"), archived); err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40402, "chat not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"archived": archived})
}

func (h *Handler) ArchiveChat(c *gin.Context)   { h.setArchived(c, true) }
func (h *Handler) UnarchiveChat(c *gin.Context) { h.setArchived(c, false) }

func (h *Handler) DeleteChat(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if err := h.ChatSvc.DeleteChat(c.Request.Context(), uid, c.Param("chat_id")); err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40402, "chat not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"deleted": true})
}

// GetAttachment streams the stored bytes. Ownership is checked through
// the attachment -> message -> chat chain; foreign attachments read as
// not found.
func (h *Handler) GetAttachment(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	att, err := h.ChatSvc.GetAttachment(c.Request.Context(), uid, c.Param("attachment_id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40403, "attachment not found")
		return
	}

	data, err := h.Files.Read(att.Path)
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40403, "attachment not found")
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+att.Name+`"`)
	c.Data(http.StatusOK, att.Mimetype, data)
}

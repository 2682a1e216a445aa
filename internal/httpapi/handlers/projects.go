package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/common"
	"github.com/atelier-ai/atelier/internal/content"
)

type projectReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req projectReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		common.Fail(c, http.StatusBadRequest, 10012, "name is required")
		return
	}

	p := &content.Project{Name: req.Name, Description: req.Description, UserID: uid}
	if err := h.Contents.CreateProject(c.Request.Context(), p); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create project")
		return
	}

	common.OK(c, gin.H{"project": p})
}

func (h *Handler) ListProjects(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	projects, err := h.Contents.ListProjects(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list projects")
		return
	}

	common.OK(c, gin.H{"projects": projects})
}

func (h *Handler) GetProject(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	p, err := h.Contents.GetProject(c.Request.Context(), uid, c.Param("project_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40405, "project not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"project": p})
}

func (h *Handler) UpdateProject(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	p, err := h.Contents.GetProject(c.Request.Context(), uid, c.Param("project_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40405, "project not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	var req projectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}

	if err := h.Contents.UpdateProject(c.Request.Context(), p); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to update project")
		return
	}

	common.OK(c, gin.H{"project": p})
}

func (h *Handler) DeleteProject(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	if err := h.Contents.DeleteProject(c.Request.Context(), uid, c.Param("project_id")); err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40405, "project not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"deleted": true})
}

func (h *Handler) AttachContent(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	err := h.Contents.AttachToProject(c.Request.Context(), uid, c.Param("project_id"), c.Param("content_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40406, "project or content not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"attached": true})
}

func (h *Handler) DetachContent(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	err := h.Contents.DetachFromProject(c.Request.Context(), uid, c.Param("project_id"), c.Param("content_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40406, "project or content not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{"detached": true})
}

// ListContents lists the caller's generated contents, optionally
// filtered by ?type=text|image|video.
func (h *Handler) ListContents(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	contentType := content.Type(c.Query("type"))
	switch contentType {
	case "", content.TypeText, content.TypeImage, content.TypeVideo:
	default:
		common.Fail(c, http.StatusBadRequest, 10013, "unknown content type")
		return
	}

	items, err := h.Contents.List(c.Request.Context(), uid, contentType)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list contents")
		return
	}

	common.OK(c, gin.H{"contents": items})
}

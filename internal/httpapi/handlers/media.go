package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelier-ai/atelier/internal/common"
)

type generateImageReq struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model"`
	Style   string `json:"style"`
	Ratio   string `json:"ratio"`
	Quality string `json:"quality"`
}

func (h *Handler) GenerateImage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req generateImageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Prompt == "" {
		common.Fail(c, http.StatusBadRequest, 10011, "prompt is required")
		return
	}

	rec, err := h.ImageSvc.Generate(c.Request.Context(), uid, req.Prompt, req.Model, req.Style, req.Ratio, req.Quality)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50011, "image generation failed")
		return
	}

	common.OK(c, gin.H{"content": rec})
}

type generateVideoReq struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model_used"`
	Ratio  string `json:"ratio"`
}

// GenerateVideo enqueues a job and returns immediately; clients poll
// GetVideoJob for the result.
func (h *Handler) GenerateVideo(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req generateVideoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Prompt == "" {
		common.Fail(c, http.StatusBadRequest, 10011, "prompt is required")
		return
	}

	job, err := h.VideoSvc.Enqueue(c.Request.Context(), uid, req.Prompt, req.Model, req.Ratio)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50012, "enqueue failed")
		return
	}

	common.OK(c, gin.H{"job_id": job.ID, "status": job.Status})
}

func (h *Handler) GetVideoJob(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	job, err := h.VideoSvc.GetJob(c.Request.Context(), uid, jobID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40404, "job not found")
			return
		}
		// foreign jobs read the same as missing ones
		common.Fail(c, http.StatusNotFound, 40404, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":                job.ID,
			"status":            job.Status,
			"result_content_id": job.ResultContentID,
			"error":             job.Error,
			"created_at":        job.CreatedAt,
			"updated_at":        job.UpdatedAt,
		},
	})
}

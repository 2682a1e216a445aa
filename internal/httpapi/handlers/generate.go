package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/atelier-ai/atelier/internal/chat"
	"github.com/atelier-ai/atelier/internal/common"
)

type generateTextReq struct {
	Input       string   `json:"input"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	ChatID      string   `json:"chat_id"`
}

// GenerateText drives one conversational turn. Accepts JSON or, when
// the client uploads attachments, multipart form with the same fields
// plus files[].
func (h *Handler) GenerateText(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req generateTextReq
	var files []chat.UploadedFile

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid multipart form")
			return
		}
		req.Input = c.PostForm("input")
		req.Model = c.PostForm("model")
		req.ChatID = c.PostForm("chat_id")
		if v := c.PostForm("temperature"); v != "" {
			if t, err := strconv.ParseFloat(v, 64); err == nil {
				req.Temperature = &t
			}
		}
		if v := c.PostForm("max_tokens"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				req.MaxTokens = n
			}
		}

		for _, fh := range form.File["files"] {
			uf, err := h.saveUpload(fh)
			if err != nil {
				// a broken upload is skipped, not fatal to the turn
				log.Warn().Err(err).Str("name", fh.Filename).Msg("attachment upload failed")
				continue
			}
			files = append(files, *uf)
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
			return
		}
	}

	// attachment-only turns are valid; reject only a fully empty turn
	if strings.TrimSpace(req.Input) == "" && len(files) == 0 {
		common.Fail(c, http.StatusBadRequest, 10010, "input or files required")
		return
	}

	res, err := h.ChatSvc.GenerateText(c.Request.Context(), chat.GenerateInput{
		UserID:      uid,
		ChatID:      req.ChatID,
		Input:       req.Input,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Files:       files,
	})
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50010, "generation failed")
		return
	}

	common.OK(c, res)
}

func (h *Handler) saveUpload(fh *multipart.FileHeader) (*chat.UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	ext := strings.TrimPrefix(filepath.Ext(fh.Filename), ".")
	path, err := h.Files.Write(data, ext)
	if err != nil {
		return nil, err
	}

	mimetype := fh.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	return &chat.UploadedFile{
		Name:      fh.Filename,
		Path:      path,
		Mimetype:  mimetype,
		SizeBytes: fh.Size,
	}, nil
}

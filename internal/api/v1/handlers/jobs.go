// Package handlers implements the v1 HTTP endpoints.
package handlers

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"voxledger/internal/api/errors"
	"voxledger/internal/api/middleware"
	"voxledger/internal/api/v1/dto"
	"voxledger/internal/app/export"
	"voxledger/internal/app/job"
	"voxledger/internal/app/model"
	"voxledger/internal/app/pipeline"
	"voxledger/internal/app/repository"
)

// JobHandler serves the job lifecycle endpoints.
type JobHandler struct {
	admitter *pipeline.Admitter
	store    repository.Store
}

// NewJobHandler creates the job endpoints.
func NewJobHandler(admitter *pipeline.Admitter, store repository.Store) *JobHandler {
	return &JobHandler{admitter: admitter, store: store}
}

// Submit handles POST /jobs: multipart audio upload plus form fields.
func (h *JobHandler) Submit(c *gin.Context) {
	var form dto.SubmitJobForm
	if err := middleware.ValidateForm(c, &form); err != nil {
		middleware.HandleError(c, err)
		return
	}
	if form.Language == "" {
		form.Language = model.LanguageAuto
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		middleware.HandleError(c, errors.NewValidationError("validation failed",
			map[string]string{"file": "is required"}))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	defer file.Close()

	j, err := h.admitter.Submit(c.Request.Context(), pipeline.SubmitRequest{
		UserID:      form.UserID,
		Filename:    fileHeader.Filename,
		ContentType: uploadContentType(fileHeader),
		Size:        fileHeader.Size,
		Language:    form.Language,
		ModelTier:   model.ModelTier(form.ModelTier),
		Content:     file,
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewJobResponse(j))
}

// uploadContentType prefers the part's own Content-Type but falls back
// to the filename extension; browsers regularly send octet-stream for
// perfectly good audio files.
func uploadContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/m4a"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	}
	return ct
}

// Get handles GET /jobs/:id, the poll surface for job status.
func (h *JobHandler) Get(c *gin.Context) {
	j, err := h.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewJobResponse(j))
}

// List handles GET /jobs?user_id=...&limit=N.
func (h *JobHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		middleware.HandleError(c, errors.NewBadRequestError("user_id query parameter is required"))
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			middleware.HandleError(c, errors.NewBadRequestError("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	jobs, err := h.store.ListJobsByUser(c.Request.Context(), userID, limit)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	resp := dto.JobListResponse{Jobs: make([]dto.JobResponse, 0, len(jobs)), Count: len(jobs)}
	for i := range jobs {
		resp.Jobs = append(resp.Jobs, dto.NewJobResponse(&jobs[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel handles POST /jobs/:id/cancel. Only pending jobs can be
// cancelled; anything else is a transition conflict.
func (h *JobHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()
	j, err := h.store.GetJob(ctx, c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if err := job.Advance(j, model.StatusCancelled, -1, ""); err != nil {
		middleware.HandleError(c, err)
		return
	}
	if err := h.store.UpdateJob(ctx, j); err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewJobResponse(j))
}

// Transcript handles GET /jobs/:id/transcript.
func (h *JobHandler) Transcript(c *gin.Context) {
	t, err := h.store.GetTranscriptByJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTranscriptResponse(t))
}

// Export handles GET /jobs/:id/exports/:format. Artifacts are pure
// functions of the transcript, so they render on demand and match any
// stored copy byte for byte.
func (h *JobHandler) Export(c *gin.Context) {
	format := export.Format(c.Param("format"))
	if !format.Valid() {
		middleware.HandleError(c, errors.NewBadRequestError("unsupported export format"))
		return
	}

	t, err := h.store.GetTranscriptByJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	data, err := export.Render(t, format)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="transcript.`+string(format)+`"`)
	c.Data(http.StatusOK, format.ContentType(), data)
}

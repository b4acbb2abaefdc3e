package recordings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/voxnote/backend/internal/middleware"
	"github.com/voxnote/backend/internal/models"
	"github.com/voxnote/backend/internal/transcription"
	"github.com/voxnote/backend/pkg/response"
)

const (
	defaultPage  = 1
	defaultLimit = 5
)

// RecordingStore is the persistence surface the handlers need.
type RecordingStore interface {
	Create(ctx context.Context, rec *models.Recording) error
	ExistsByNameAndOwner(ctx context.Context, name string, userID uuid.UUID) (bool, error)
	CountByOwner(ctx context.Context, userID uuid.UUID) (int, error)
	ListByOwner(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.ListItem, error)
	GetByIDAndOwner(ctx context.Context, id, userID uuid.UUID) (*models.Recording, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateJob(ctx context.Context, id uuid.UUID, jobID, resultURL string) error
	UpdateResult(ctx context.Context, id uuid.UUID, result json.RawMessage) error
}

// Transcriber submits jobs to and polls results from the external provider.
type Transcriber interface {
	Submit(ctx context.Context, audioURL string) (*transcription.Job, error)
	FetchResult(ctx context.Context, resultURL string) (json.RawMessage, error)
}

// ListResponse is the paginated body for GET /api/recording/getAll.
type ListResponse struct {
	Page       int               `json:"page"`
	Pages      int               `json:"pages"`
	Next       *string           `json:"next"`
	Prev       *string           `json:"prev"`
	Limit      int               `json:"limit"`
	TotalItems int               `json:"totalItems"`
	Data       []models.ListItem `json:"data"`
}

// Handler handles recording HTTP endpoints. Every route runs behind the
// auth gate, so the owner identity is always present in the context.
type Handler struct {
	store       RecordingStore
	transcriber Transcriber
	logger      *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(store RecordingStore, transcriber Transcriber, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, transcriber: transcriber, logger: logger}
}

// Create handles POST /api/recording/createRecording. The upload middleware
// has already validated and saved the file.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	filePath, ok := c.Get(ContextFilePath)
	if !ok {
		response.BadRequest(c, "No file uploaded")
		return
	}
	path := filePath.(string)

	name := c.PostForm("name")
	if strings.TrimSpace(name) == "" {
		h.removeFile(path)
		response.BadRequest(c, "Recording name is required")
		return
	}

	exists, err := h.store.ExistsByNameAndOwner(c.Request.Context(), name, userID)
	if err != nil {
		h.removeFile(path)
		h.logger.Error("check recording name failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}
	if exists {
		h.removeFile(path)
		response.BadRequest(c, "Recording with this name already exists")
		return
	}

	rec := &models.Recording{
		Name:     name,
		FilePath: strings.ReplaceAll(path, `\`, "/"),
		UserID:   userID,
	}
	if err := h.store.Create(c.Request.Context(), rec); err != nil {
		// File was written before the insert; don't leave it orphaned.
		h.removeFile(path)
		if isUniqueViolation(err) {
			response.BadRequest(c, "Recording with this name already exists")
			return
		}
		h.logger.Error("create recording failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.Created(c, gin.H{"message": "Recording saved successfully", "recording": rec})
}

// GetAll handles GET /api/recording/getAll with page/limit pagination.
func (h *Handler) GetAll(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	page, ok1 := queryInt(c, "page", defaultPage)
	limit, ok2 := queryInt(c, "limit", defaultLimit)
	if !ok1 || !ok2 || page < 1 || limit < 1 {
		response.BadRequest(c, "Page and limit must be positive integers")
		return
	}

	totalItems, err := h.store.CountByOwner(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("count recordings failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	data, err := h.store.ListByOwner(c.Request.Context(), userID, (page-1)*limit, limit)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	pages := (totalItems + limit - 1) / limit
	baseURL := requestBaseURL(c) + c.Request.URL.Path

	var next, prev *string
	if page < pages {
		u := fmt.Sprintf("%s?page=%d&limit=%d", baseURL, page+1, limit)
		next = &u
	}
	if page > 1 {
		u := fmt.Sprintf("%s?page=%d&limit=%d", baseURL, page-1, limit)
		prev = &u
	}

	response.OK(c, ListResponse{
		Page:       page,
		Pages:      pages,
		Next:       next,
		Prev:       prev,
		Limit:      limit,
		TotalItems: totalItems,
		Data:       data,
	})
}

// GetByID handles GET /api/recording/getById/:id.
func (h *Handler) GetByID(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "ID is required and must be a valid id")
		return
	}

	rec, err := h.store.GetByIDAndOwner(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Recording not found")
			return
		}
		h.logger.Error("get recording failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.OK(c, gin.H{"data": rec})
}

// Delete handles DELETE /api/recording/deleteById/:id.
func (h *Handler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "ID is required and must be a valid id")
		return
	}

	if _, err := h.store.GetByIDAndOwner(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Recording not found")
			return
		}
		h.logger.Error("get recording failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete recording failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	response.Created(c, response.Message{Message: "Recording deleted successfully"})
}

// CreateTranscription handles POST /api/recording/createTranscription/:id.
// The stored file is served statically, so its public URL is this server's
// own address with the upload temp prefix stripped from the path.
func (h *Handler) CreateTranscription(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "ID is required and must be a valid id")
		return
	}

	rec, err := h.store.GetByIDAndOwner(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Audio not found.")
			return
		}
		h.logger.Error("get recording failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	fileURL := requestBaseURL(c) + strings.TrimPrefix(rec.FilePath, "/tmp")

	job, err := h.transcriber.Submit(c.Request.Context(), fileURL)
	if err != nil {
		h.logger.Error("submit transcription failed", zap.Error(err), zap.String("recording_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error creating transcription",
			"error":   providerMessage(err),
		})
		return
	}

	if err := h.store.UpdateJob(c.Request.Context(), id, job.ID, job.ResultURL); err != nil {
		h.logger.Error("store job handle failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "Internal server error")
		return
	}
	rec.JobID = job.ID
	rec.ResultURL = job.ResultURL

	response.OK(c, gin.H{"message": "Transcription request sent to Gladia", "data": rec})
}

// GetTranscriptionResult handles GET /api/recording/getTranscriptionResult/:id.
// Every call refetches and overwrites the stored payload.
func (h *Handler) GetTranscriptionResult(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "ID is required and must be a valid id")
		return
	}

	rec, err := h.store.GetByIDAndOwner(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "Recording not found.")
			return
		}
		h.logger.Error("get recording failed", zap.Error(err))
		response.Internal(c, "Internal server error")
		return
	}

	if rec.JobID == "" || rec.ResultURL == "" {
		response.BadRequest(c, "No transcription has been requested yet.")
		return
	}

	result, err := h.transcriber.FetchResult(c.Request.Context(), rec.ResultURL)
	if err != nil {
		h.logger.Error("fetch transcription result failed", zap.Error(err), zap.String("recording_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error retrieving transcription result",
			"error":   providerMessage(err),
		})
		return
	}

	if err := h.store.UpdateResult(c.Request.Context(), id, result); err != nil {
		h.logger.Error("store transcription result failed", zap.Error(err), zap.String("recording_id", id.String()))
		response.Internal(c, "Internal server error")
		return
	}
	rec.Result = result

	response.OK(c, gin.H{"message": "Transcription result retrieved", "data": rec})
}

func (h *Handler) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("remove uploaded file failed", zap.Error(err), zap.String("path", path))
	}
}

// queryInt parses an optional positive-int query parameter. ok is false
// when the value is present but not an integer.
func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func providerMessage(err error) string {
	var provErr *transcription.ProviderError
	if errors.As(err, &provErr) && provErr.Message != "" {
		return provErr.Message
	}
	return err.Error()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"newsrag/internal/domain"
	"newsrag/internal/port"
	"newsrag/internal/usecase"
)

const MaxMessageLength = 1000

// ingestWriteSlack leaves time to write the ingestion summary once the
// ingest budget is spent.
const ingestWriteSlack = 10 * time.Second

// ChatService runs one chat turn.
type ChatService interface {
	ProcessMessage(ctx context.Context, sessionID, message string) (*domain.ChatResponse, error)
}

// Ingester runs one ingestion pass.
type Ingester interface {
	Ingest(ctx context.Context, progress usecase.IngestProgress) (*usecase.IngestResult, error)
}

// Handler serves the chat, history, ingestion and stats endpoints.
type Handler struct {
	chat          ChatService
	history       port.HistoryStore
	ingester      Ingester
	index         port.VectorIndex
	store         port.KVStore
	ingestTimeout time.Duration
	log           *slog.Logger
	now           func() time.Time
}

// Deps lists the collaborators of a Handler.
type Deps struct {
	Chat          ChatService
	History       port.HistoryStore
	Ingester      Ingester
	Index         port.VectorIndex
	Store         port.KVStore
	IngestTimeout time.Duration
	Logger        *slog.Logger
}

func NewHandler(d Deps) *Handler {
	if d.IngestTimeout <= 0 {
		d.IngestTimeout = 10 * time.Minute
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{
		chat:          d.Chat,
		history:       d.History,
		ingester:      d.Ingester,
		index:         d.Index,
		store:         d.Store,
		ingestTimeout: d.IngestTimeout,
		log:           d.Logger,
		now:           time.Now,
	}
}

type chatRequest struct {
	SessionID string          `json:"sessionId"`
	Message   json.RawMessage `json:"message"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	raw := strings.TrimSpace(string(req.Message))
	if req.SessionID == "" || raw == "" || raw == "null" || raw == `""` {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Missing required fields",
			"required": []string{"sessionId", "message"},
		})
		return
	}

	var message string
	if err := json.Unmarshal(req.Message, &message); err != nil || strings.TrimSpace(message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must be a non-empty string"})
		return
	}

	if utf8.RuneCountInString(message) > MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message too long (max 1000 characters)"})
		return
	}

	resp, err := h.chat.ProcessMessage(c.Request.Context(), req.SessionID, strings.TrimSpace(message))
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
			return
		}
		h.log.Error("chat processing error", "session", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process message",
			"message": "Please try again later",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetHistory handles GET /history/:sessionId.
func (h *Handler) GetHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	messages := h.history.Read(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"messages":  messages,
		"count":     len(messages),
	})
}

// ClearHistory handles DELETE /history/:sessionId.
func (h *Handler) ClearHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	if err := h.history.Clear(c.Request.Context(), sessionID); err != nil {
		h.log.Error("failed to clear session", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Session history cleared successfully",
		"sessionId": sessionID,
	})
}

// IngestNews handles POST /ingest-news. The run is detached from the
// client connection and bounded by the ingest timeout instead. The
// server's write timeout is shorter than a full run, so the write deadline
// of this response is pushed past the ingest budget.
func (h *Handler) IngestNews(c *gin.Context) {
	rc := http.NewResponseController(c.Writer)
	if err := rc.SetWriteDeadline(time.Now().Add(h.ingestTimeout + ingestWriteSlack)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.log.Warn("failed to extend ingest write deadline", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.ingestTimeout)
	defer cancel()

	result, err := h.ingester.Ingest(ctx, nil)
	if err != nil {
		h.log.Error("news ingestion error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest news articles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "News ingestion completed",
		"articlesProcessed": result.Processed,
		"total":             result.Total,
		"failed":            result.Failed,
		"timestamp":         result.Timestamp,
	})
}

// Stats handles GET /stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.index.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("stats error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	storeStatus := "ok"
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			h.log.Warn("health check: store unreachable", "error", err)
			status, code, storeStatus = "degraded", http.StatusServiceUnavailable, "unavailable"
		}
	}
	c.JSON(code, gin.H{
		"status":    status,
		"store":     storeStatus,
		"articles":  h.index.Len(),
		"timestamp": h.now().UTC(),
	})
}

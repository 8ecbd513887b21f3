package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/pairpad/pairpad-server/internal/core"
	"github.com/pairpad/pairpad-server/internal/proto"
	"github.com/pairpad/pairpad-server/internal/store"
)

// APIHandlers provides HTTP handlers for the read-only REST endpoints.
type APIHandlers struct {
	hub       *core.Hub
	store     store.Store // nil when persistence is disabled
	languages []string
	log       *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub *core.Hub, st store.Store, languages []string, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:       hub,
		store:     st,
		languages: languages,
		log:       logger,
	}
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports server liveness and the wire protocol version
// clients should speak.
type HealthResponse struct {
	Status    string `json:"status"`
	Protocol  int    `json:"protocol_version"`
	Timestamp string `json:"timestamp"`
}

// ParticipantResponse is one roster entry in API responses.
type ParticipantResponse struct {
	ConnID   string `json:"conn_id"`
	Username string `json:"username"`
}

// ChatMessageResponse is one chat history entry.
type ChatMessageResponse struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
	Timestamp string `json:"timestamp"`
}

// LanguagesResponse lists the languages the execution coordinator accepts.
type LanguagesResponse struct {
	Languages []string `json:"languages"`
}

// Health handles liveness checks.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Protocol:  proto.ProtocolVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RoomParticipants returns the live roster of a room.
// GET /api/rooms/:room/participants
func (h *APIHandlers) RoomParticipants(c *gin.Context) {
	roster := h.hub.Roster(c.Request.Context(), c.Param("room"))

	c.JSON(http.StatusOK, lo.Map(roster, func(p core.Participant, _ int) ParticipantResponse {
		return ParticipantResponse{ConnID: p.ConnID, Username: p.Username}
	}))
}

// RoomChat returns persisted chat history, oldest first.
// GET /api/rooms/:room/chat?limit=50
func (h *APIHandlers) RoomChat(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "chat history is disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}

	messages, err := h.store.ListChat(c.Request.Context(), c.Param("room"), limit)
	if err != nil {
		h.log.Error().Err(err).Str("room", c.Param("room")).Msg("list chat history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, lo.Map(messages, func(m *store.ChatMessage, _ int) ChatMessageResponse {
		return ChatMessageResponse{
			Username:  m.Username,
			Message:   m.Body,
			Recipient: m.Recipient,
			Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
		}
	}))
}

// Languages returns the registered execution languages.
// GET /api/languages
func (h *APIHandlers) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, LanguagesResponse{Languages: h.languages})
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/mbot/internal/conversation"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ConversationsHandler is the admin surface over stored transcripts.
type ConversationsHandler struct {
	service *conversation.Service
	logger  *slog.Logger
}

type listConversationsResponse struct {
	Items  []conversation.Summary `json:"items"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

type ClearConversationsRequest struct {
	SenderIDs []string `json:"sender_ids" validate:"required,min=1,dive,required"`
}

type clearConversationsResponse struct {
	Cleared int `json:"cleared"`
}

func NewConversationsHandler(log *slog.Logger, service *conversation.Service) *ConversationsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "conversations")),
	}
}

func (h *ConversationsHandler) Register(e *echo.Echo) {
	group := e.Group("/conversations")
	group.GET("", h.List)
	group.POST("/clear", h.ClearMany)
	group.GET("/:sender_id", h.Get)
	group.DELETE("/:sender_id/history", h.Clear)
}

// List godoc
// @Summary List conversations
// @Description Newest first, optionally filtered by sender id substring
// @Tags conversations
// @Param q query string false "Sender id search"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} listConversationsResponse
// @Failure 500 {object} ErrorResponse
// @Router /conversations [get]
func (h *ConversationsHandler) List(c echo.Context) error {
	limit := parseIntQuery(c, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	items, err := h.service.List(c.Request().Context(), conversation.ListQuery{
		Search: strings.TrimSpace(c.QueryParam("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, listConversationsResponse{Items: items, Limit: limit, Offset: offset})
}

// Get godoc
// @Summary Get a conversation with its full history
// @Tags conversations
// @Param sender_id path string true "Sender id"
// @Success 200 {object} conversation.Conversation
// @Failure 404 {object} ErrorResponse
// @Router /conversations/{sender_id} [get]
func (h *ConversationsHandler) Get(c echo.Context) error {
	conv, err := h.service.Get(c.Request().Context(), c.Param("sender_id"))
	if err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

// Clear godoc
// @Summary Clear the history of a conversation
// @Tags conversations
// @Param sender_id path string true "Sender id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /conversations/{sender_id}/history [delete]
func (h *ConversationsHandler) Clear(c echo.Context) error {
	senderID := strings.TrimSpace(c.Param("sender_id"))
	if senderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sender id is required")
	}
	if _, err := h.service.Clear(c.Request().Context(), senderID); err != nil {
		return conversationError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearMany godoc
// @Summary Clear the history of several conversations
// @Tags conversations
// @Param payload body ClearConversationsRequest true "Sender ids"
// @Success 200 {object} clearConversationsResponse
// @Failure 400 {object} ErrorResponse
// @Router /conversations/clear [post]
func (h *ConversationsHandler) ClearMany(c echo.Context) error {
	var req ClearConversationsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cleared, err := h.service.Clear(c.Request().Context(), req.SenderIDs...)
	if err != nil {
		return conversationError(err)
	}
	return c.JSON(http.StatusOK, clearConversationsResponse{Cleared: cleared})
}

func conversationError(err error) error {
	if errors.Is(err, conversation.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseIntQuery(c echo.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

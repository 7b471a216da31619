package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/memohai/mbot/internal/channel"
	"github.com/memohai/mbot/internal/config"
	"github.com/memohai/mbot/internal/conversation/flow"
)

type eventProcessor interface {
	Process(ctx context.Context, event channel.InboundEvent) flow.Outcome
}

const webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB

// WebhookHandler receives Messenger webhook verification and event deliveries.
type WebhookHandler struct {
	logger      *slog.Logger
	processor   eventProcessor
	appSecret   []byte
	verifyToken string
	now         func() time.Time
}

// NewWebhookHandler creates the public webhook handler.
func NewWebhookHandler(log *slog.Logger, processor eventProcessor, appSecret, verifyToken string) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:      log.With(slog.String("handler", "messenger_webhook")),
		processor:   processor,
		appSecret:   []byte(strings.TrimSpace(appSecret)),
		verifyToken: strings.TrimSpace(verifyToken),
		now:         time.Now,
	}
}

// NewWebhookServerHandler is a DI-friendly constructor for fx.
func NewWebhookServerHandler(log *slog.Logger, cfg config.Config, session *flow.Session) *WebhookHandler {
	return NewWebhookHandler(log, session, cfg.Messenger.AppSecret, cfg.Messenger.VerifyToken)
}

// Register registers webhook routes.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook", h.HandleVerify)
	e.POST("/webhook", h.Handle)
}

// HandleVerify answers the subscription handshake with the challenge.
func (h *WebhookHandler) HandleVerify(c echo.Context) error {
	mode := queryParam(c, "hub.mode", "mode")
	token := queryParam(c, "hub.verify_token", "verify_token")
	challenge := queryParam(c, "hub.challenge", "challenge")
	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		return c.String(http.StatusOK, challenge)
	}
	h.logger.Warn("webhook verification rejected", slog.String("mode", mode))
	return echo.NewHTTPError(http.StatusForbidden, "verification failed")
}

// Handle verifies, decodes and processes one delivery. Events are handled
// sequentially, each in its own failure scope.
func (h *WebhookHandler) Handle(c echo.Context) error {
	if h.processor == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "messenger webhook dependencies not configured")
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(body)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", webhookMaxBodyBytes))
	}
	if !VerifySignature(body, c.Request().Header.Get(SignatureHeader), h.appSecret) {
		h.logger.Warn("invalid webhook signature", slog.String("remote_ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ctx := context.WithoutCancel(c.Request().Context())
	for _, event := range payload.toEvents(h.now()) {
		h.processOne(ctx, event)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) processOne(ctx context.Context, event channel.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("event processing panicked",
				slog.String("sender", event.SenderID),
				slog.Any("panic", r))
		}
	}()
	outcome := h.processor.Process(ctx, event)
	h.logger.Debug("event processed",
		slog.String("sender", event.SenderID),
		slog.String("outcome", string(outcome)))
}

func queryParam(c echo.Context, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.QueryParam(name)); v != "" {
			return v
		}
	}
	return ""
}

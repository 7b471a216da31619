package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/memohai/mbot/internal/channel"
	"github.com/memohai/mbot/internal/config"
)

const maxResponseBytes = 64 << 10

// ClientOptions configures the Graph API send client.
type ClientOptions struct {
	BaseURL         string
	APIVersion      string
	PageAccessToken string
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// Client posts messages and sender actions to the Send API. It implements
// channel.Sender.
type Client struct {
	logger   *slog.Logger
	http     *http.Client
	endpoint string
	token    string
}

// NewClient creates a send client.
func NewClient(log *slog.Logger, opts ClientOptions) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = config.DefaultGraphAPIBaseURL
	}
	version := strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	if version == "" {
		version = config.DefaultGraphAPIVersion
	}
	return &Client{
		logger:   log.With(slog.String("adapter", "messenger")),
		http:     httpClient,
		endpoint: base + "/" + version + "/me/messages",
		token:    strings.TrimSpace(opts.PageAccessToken),
	}
}

// NewClientFromConfig builds a client from the messenger section.
func NewClientFromConfig(log *slog.Logger, cfg config.Config) *Client {
	return NewClient(log, ClientOptions{
		BaseURL:         cfg.Messenger.GraphAPIBaseURL,
		APIVersion:      cfg.Messenger.GraphAPIVersion,
		PageAccessToken: cfg.Messenger.PageAccessToken,
		Timeout:         cfg.Messenger.SendTimeout(),
	})
}

type sendRecipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient    sendRecipient `json:"recipient"`
	Message      any           `json:"message,omitempty"`
	SenderAction string        `json:"sender_action,omitempty"`
}

type textMessage struct {
	Text string `json:"text"`
}

type attachmentMessage struct {
	Attachment sendAttachment `json:"attachment"`
}

type sendAttachment struct {
	Type    string                `json:"type"`
	Payload sendAttachmentPayload `json:"payload"`
}

type sendAttachmentPayload struct {
	URL        string `json:"url"`
	IsReusable bool   `json:"is_reusable"`
}

type graphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

type sendResponse struct {
	RecipientID string      `json:"recipient_id"`
	MessageID   string      `json:"message_id"`
	Error       *graphError `json:"error"`
}

// SendMessage delivers one fragment.
func (c *Client) SendMessage(ctx context.Context, recipientID string, fragment channel.Fragment) error {
	message, err := messageBody(fragment)
	if err != nil {
		return err
	}
	return c.post(ctx, sendRequest{Recipient: sendRecipient{ID: recipientID}, Message: message})
}

// SendAction delivers a sender action (mark_seen, typing_on, typing_off).
func (c *Client) SendAction(ctx context.Context, recipientID string, action channel.SenderAction) error {
	return c.post(ctx, sendRequest{Recipient: sendRecipient{ID: recipientID}, SenderAction: string(action)})
}

func messageBody(fragment channel.Fragment) (any, error) {
	switch fragment.Kind {
	case channel.FragmentText:
		if strings.TrimSpace(fragment.Text) == "" {
			return nil, errors.New("text fragment is empty")
		}
		return textMessage{Text: fragment.Text}, nil
	case channel.FragmentAttachment:
		if fragment.Attachment == nil || strings.TrimSpace(fragment.Attachment.URL) == "" {
			return nil, errors.New("attachment fragment has no url")
		}
		return attachmentMessage{Attachment: sendAttachment{
			Type:    fragment.Attachment.Type,
			Payload: sendAttachmentPayload{URL: fragment.Attachment.URL, IsReusable: true},
		}}, nil
	case channel.FragmentQuickReplies:
		if len(fragment.QuickReplies) == 0 {
			return nil, errors.New("quick replies fragment is empty")
		}
		return fragment.QuickReplies, nil
	default:
		return nil, fmt.Errorf("unsupported fragment kind %q", fragment.Kind)
	}
}

func (c *Client) post(ctx context.Context, body sendRequest) error {
	if c.token == "" {
		return errors.New("page access token not configured")
	}
	if strings.TrimSpace(body.Recipient.ID) == "" {
		return errors.New("recipient is required")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}
	endpoint := c.endpoint + "?access_token=" + url.QueryEscape(c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send api request: %w", redactToken(err, c.token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read send api response: %w", err)
	}
	var parsed sendResponse
	_ = json.Unmarshal(raw, &parsed)
	if parsed.Error != nil {
		return fmt.Errorf("send api error %d (%s): %s", parsed.Error.Code, parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	c.logger.Debug("send api ok",
		slog.String("recipient", body.Recipient.ID),
		slog.String("message_id", parsed.MessageID))
	return nil
}

// redactToken keeps the page token out of transport errors, which embed the URL.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), url.QueryEscape(token)) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(token), "REDACTED"))
}

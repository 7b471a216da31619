// Package media turns inbound attachment URLs into short text descriptions.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"
)

const DefaultInstruction = "Describe what this contains in one or two short sentences."

// ContentGenerator is satisfied by (*genai.Client).Models.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	Model       string
	Instruction string
	MaxBytes    int64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Describer downloads media and asks a Gemini model to describe it.
type Describer struct {
	models      ContentGenerator
	http        *http.Client
	model       string
	instruction string
	maxBytes    int64
	timeout     time.Duration
	logger      *slog.Logger
}

func NewDescriber(log *slog.Logger, models ContentGenerator, opts Options) *Describer {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(opts.Instruction) == "" {
		opts.Instruction = DefaultInstruction
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Describer{
		models:      models,
		http:        opts.HTTPClient,
		model:       opts.Model,
		instruction: opts.Instruction,
		maxBytes:    opts.MaxBytes,
		timeout:     opts.Timeout,
		logger:      log.With(slog.String("service", "media")),
	}
}

// Describe returns a free-text description of the media at url.
func (d *Describer) Describe(ctx context.Context, url string) (string, error) {
	if d.models == nil {
		return "", fmt.Errorf("media model not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	data, mimeType, err := d.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(d.instruction),
		}, genai.RoleUser),
	}
	res, err := d.models.GenerateContent(ctx, d.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", fmt.Errorf("describe media: %w", err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", ErrEmptyDescription
	}
	d.logger.Debug("media described", slog.String("mime", mimeType), slog.Int("bytes", len(data)))
	return text, nil
}

func (d *Describer) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	data, err := ReadAllWithLimit(resp.Body, d.maxBytes)
	if err != nil {
		return nil, "", err
	}
	return data, detectMIME(data, resp.Header.Get("Content-Type")), nil
}

// detectMIME sniffs data and falls back to the declared header when the
// content is not recognized.
func detectMIME(data []byte, declared string) string {
	detected := mimetype.Detect(data)
	if !detected.Is("application/octet-stream") {
		return baseMIME(detected.String())
	}
	if declared = baseMIME(declared); declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func baseMIME(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

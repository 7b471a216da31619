package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/memohai/mbot/internal/conversation"
)

// ContentGenerator is satisfied by (*genai.Client).Models.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeneratorFactory builds a generator for one API key.
type GeneratorFactory func(ctx context.Context, apiKey string) (ContentGenerator, error)

// NewGenAIGenerator creates a Gemini API client for apiKey.
func NewGenAIGenerator(ctx context.Context, apiKey string) (ContentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client.Models, nil
}

// GeminiEngine calls Gemini with JSON output, keeping one client per key.
type GeminiEngine struct {
	factory GeneratorFactory
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[string]ContentGenerator
}

func NewGeminiEngine(log *slog.Logger, factory GeneratorFactory) *GeminiEngine {
	if log == nil {
		log = slog.Default()
	}
	if factory == nil {
		factory = NewGenAIGenerator
	}
	return &GeminiEngine{
		factory: factory,
		logger:  log.With(slog.String("component", "gemini")),
		clients: make(map[string]ContentGenerator),
	}
}

func (e *GeminiEngine) Complete(ctx context.Context, req Request) (string, error) {
	gen, err := e.generator(ctx, req.Credential.APIKey)
	if err != nil {
		return "", err
	}
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}
	if strings.TrimSpace(req.SystemInstruction) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.ThinkingBudget != nil {
		budget := *req.ThinkingBudget
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}

	res, err := gen.GenerateContent(ctx, req.Model, historyContents(req.History), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

func (e *GeminiEngine) generator(ctx context.Context, apiKey string) (ContentGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen, ok := e.clients[apiKey]; ok {
		return gen, nil
	}
	gen, err := e.factory(context.WithoutCancel(ctx), apiKey)
	if err != nil {
		return nil, err
	}
	e.clients[apiKey] = gen
	return gen, nil
}

func historyContents(turns []conversation.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return contents
}

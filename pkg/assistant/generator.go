package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrUnavailable is returned by generators that cannot reach a model.
var ErrUnavailable = errors.New("assistant: model unavailable")

var errEmptyResponse = errors.New("assistant: empty model response")

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Request is one model call.
type Request struct {
	System  string
	History []Message
	Prompt  string
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function into a Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate implements Generator.
func (fn GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return fn(ctx, req)
}

// Offline is the generator used when no API key is configured. Every call
// fails, so callers fall back to their static replies.
type Offline struct{}

// Generate implements Generator.
func (Offline) Generate(context.Context, Request) (string, error) {
	return "", ErrUnavailable
}

// Gemini calls Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini connects to Gemini with apiKey. An empty model uses DefaultModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("assistant: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("assistant: gemini client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate sends req.Prompt after replaying req.History as a chat session.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	cs := model.StartChat()
	for _, msg := range req.History {
		cs.History = append(cs.History, &genai.Content{
			Role:  string(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Text)},
		})
	}
	resp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("assistant: gemini: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errEmptyResponse
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errEmptyResponse
	}
	return out, nil
}

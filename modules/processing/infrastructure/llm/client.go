// Package llm is the Enhancer's (C10) connection to a text-generation
// backend, built on github.com/mozilla-ai/any-llm-go the way
// pkg/provider/llm/anyllm wraps it: one unified interface, a provider name
// and model selected at construction time, real backend packages per
// provider rather than hand-rolled HTTP calls.
package llm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/openai"
)

// Client generates text completions for the Enhancer's sub-tasks
// (keywords, chapters, summary, persons, places, word-corrections).
type Client struct {
	backend anyllmlib.Provider
	model   string
}

// NewClient creates a Client backed by providerName/model. providerName is
// one of "openai", "anthropic", "gemini"; an API key is read from the
// provider's own default environment variable unless overridden by opts.
func NewClient(providerName, model string, opts ...anyllmlib.Option) (*Client, error) {
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: create %q backend: %w", providerName, err)
	}
	return &Client{backend: backend, model: model}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai", "":
		return openai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q; supported: openai, anthropic, gemini", providerName)
	}
}

// Complete runs one system+user prompt pair to completion and returns the
// generated text. Callers are responsible for graceful degradation on error;
// the Enhancer never lets a Complete failure fail the pipeline.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: c.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: userPrompt},
		},
	}

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

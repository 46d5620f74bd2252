// Package llm provides the completion-service abstraction for the facility
// assistant. Backends are selected at startup via LLM_BACKEND_TYPE and share
// the Client interface; handlers never see a concrete backend.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a backend answered successfully but
// produced no text.
var ErrEmptyCompletion = errors.New("llm: backend returned no text")

// ImageAttachment is a decoded image handed to a vision-capable backend.
type ImageAttachment struct {
	MIME string
	Data []byte
}

// Message is one turn of a conversation. Image is optional and only set on
// user turns.
type Message struct {
	Role    string
	Content string
	Image   *ImageAttachment
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerationParams are optional sampling controls passed through to the
// backend. Nil fields use backend defaults.
type GenerationParams struct {
	Temperature *float32
	MaxTokens   *int
}

// Client is the contract for any LLM backend.
type Client interface {
	// Chat sends the conversation and returns the full completion text.
	// Streaming transports must accumulate internally; callers always get
	// the complete answer.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// Package datatypes provides request and response types for the assistant
// service.
package datatypes

import (
	"fmt"
	"strings"
)

// MaxMessageContentBytes is the maximum size of a chat message. Checked in
// bytes, not runes, to bound memory.
const MaxMessageContentBytes = 32 * 1024

// ChatRequest is the body of POST /chat. Image is optional and carries
// either a raw base64 payload or a data URI. The image is deliberately not
// validated here: a malformed payload is dropped by the handler while the
// text question still gets answered.
type ChatRequest struct {
	Message string `json:"message"`
	PIN     string `json:"pin"`
	AssetID string `json:"assetId"`
	Image   string `json:"image,omitempty"`
}

// Validate checks the request fields in a fixed order so each missing field
// produces its own distinct error: message, then assetId, then pin.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if len(r.Message) > MaxMessageContentBytes {
		return fmt.Errorf("message exceeds %d bytes", MaxMessageContentBytes)
	}
	if r.AssetID == "" {
		return fmt.Errorf("assetId is required")
	}
	if r.PIN == "" {
		return fmt.Errorf("pin is required")
	}
	return nil
}

// ChatResponse is the success body of POST /chat.
type ChatResponse struct {
	Text string `json:"text"`
}

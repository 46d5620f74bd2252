package datatypes

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/facilitydesk/facilitydesk/services/llm"
)

const defaultImageMIME = "image/jpeg"

// DecodeImage parses an image payload from a chat request. It accepts either
// a data URI ("data:image/png;base64,....") or a bare base64 string, which is
// assumed to be a JPEG. Returns nil for an empty payload.
func DecodeImage(payload string) (*llm.ImageAttachment, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil
	}

	mime := defaultImageMIME
	data := payload
	if strings.HasPrefix(payload, "data:") {
		header, rest, found := strings.Cut(payload, ",")
		if !found {
			return nil, fmt.Errorf("malformed data URI: missing comma separator")
		}
		header = strings.TrimPrefix(header, "data:")
		if m, ok := strings.CutSuffix(header, ";base64"); ok {
			if m != "" {
				mime = m
			}
		} else {
			return nil, fmt.Errorf("unsupported data URI encoding: %q", header)
		}
		data = rest
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	return &llm.ImageAttachment{MIME: mime, Data: raw}, nil
}

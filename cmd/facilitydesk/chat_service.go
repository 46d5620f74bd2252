// Package main contains the facilitydesk technician CLI.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Error Sentinel Values
// -----------------------------------------------------------------------------

// ErrInvalidPIN is returned when the server rejects the presented PIN.
var ErrInvalidPIN = errors.New("invalid PIN")

// ErrAssetNotFound is returned when the server does not know the asset.
var ErrAssetNotFound = errors.New("asset not found")

// AssetChatRequest mirrors the body of the server's POST /chat endpoint.
// Image carries a base64 payload or a data URI, never raw bytes.
type AssetChatRequest struct {
	Message string `json:"message"`
	PIN     string `json:"pin"`
	AssetID string `json:"assetId"`
	Image   string `json:"image,omitempty"`
}

// ChatService abstracts the assistant backend so the session state machine
// can be tested against a mock.
type ChatService interface {
	// SendMessage submits one chat turn and returns the assistant's answer.
	SendMessage(ctx context.Context, req AssetChatRequest) (string, error)
}

// HTTPChatService talks to a running assistant service.
type HTTPChatService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPChatService creates a client for the assistant at baseURL.
func NewHTTPChatService(baseURL string) *HTTPChatService {
	return &HTTPChatService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (s *HTTPChatService) SendMessage(ctx context.Context, req AssetChatRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode the chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to reach the assistant service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read the response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("failed to parse the response: %w", err)
		}
		return out.Text, nil
	case http.StatusUnauthorized:
		return "", ErrInvalidPIN
	case http.StatusNotFound:
		return "", ErrAssetNotFound
	default:
		// Prefer the server's error message when it sends one.
		var serverErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &serverErr) == nil && serverErr.Error != "" {
			return "", errors.New(serverErr.Error)
		}
		return "", fmt.Errorf("assistant service returned status %d", resp.StatusCode)
	}
}

package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// SessionState models where the chat session stands with respect to PIN
// authentication.
type SessionState string

const (
	// StateCheckingStorage is the initial state before Restore has looked
	// at the PIN cache.
	StateCheckingStorage SessionState = "checking_storage"
	// StateUnauthenticated means the session needs a PIN before chatting.
	StateUnauthenticated SessionState = "unauthenticated"
	// StateAuthenticated means a PIN was accepted (or restored from the
	// cache and assumed valid until the server says otherwise).
	StateAuthenticated SessionState = "authenticated"
)

// imageMarker is what lands in the visible history instead of image bytes.
const imageMarker = "[image attached]"

// pinProbeMessage is the throwaway message used to verify a freshly entered
// PIN against the server.
const pinProbeMessage = "Hi"

var (
	// ErrSendInFlight is returned when Send is called while another send
	// is still waiting for the server.
	ErrSendInFlight = errors.New("a message is already in flight")
	// ErrSessionClosed is returned from calls on a closed session.
	ErrSessionClosed = errors.New("the chat session is closed")
	// ErrEmptyPIN is returned by SubmitPIN for blank input.
	ErrEmptyPIN = errors.New("the PIN must not be empty")
)

// ChatTurn is one visible entry of the conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatSession drives one technician conversation about one asset.
//
// The history only ever grows in complete user+assistant pairs: a failed
// send leaves it untouched, so its length is always even. A 401 from the
// server invalidates whatever PIN the session held, clears the cache entry,
// and drops back to StateUnauthenticated.
type ChatSession struct {
	svc   ChatService
	cache PINCache
	key   PINCacheKey

	mu      sync.Mutex
	state   SessionState
	pin     string
	loading bool
	closed  bool
	history []ChatTurn
}

// NewChatSession creates a session in StateCheckingStorage. Call Restore
// before the first Send.
func NewChatSession(svc ChatService, cache PINCache, tenant, assetID string) *ChatSession {
	return &ChatSession{
		svc:   svc,
		cache: cache,
		key:   PINCacheKey{Tenant: tenant, Asset: assetID},
		state: StateCheckingStorage,
	}
}

// Restore seeds the PIN from the cache and authenticates optimistically; the
// server gets the final word on the first send. Without a cached entry the
// session asks for a PIN.
func (s *ChatSession) Restore() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pin, ok := s.cache.Get(s.key); ok {
		s.pin = pin
		s.state = StateAuthenticated
	} else {
		s.state = StateUnauthenticated
	}
	return s.state
}

// SubmitPIN verifies a freshly entered PIN by probing the server with a
// throwaway greeting. On success the session is authenticated and the PIN is
// persisted; the probe exchange lands in the history like any other turn.
func (s *ChatSession) SubmitPIN(ctx context.Context, pin string) error {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return ErrEmptyPIN
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.pin = pin
	s.mu.Unlock()

	_, err := s.Send(ctx, pinProbeMessage, nil)
	return err
}

// Send submits one chat turn. A call with empty text and no image is a
// no-op. The image is base64-encoded for transport; the history receives
// only the marker, never the bytes.
func (s *ChatSession) Send(ctx context.Context, text string, image []byte) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(image) == 0 {
		return "", nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.loading {
		s.mu.Unlock()
		return "", ErrSendInFlight
	}
	s.loading = true
	req := AssetChatRequest{
		Message: text,
		PIN:     s.pin,
		AssetID: s.key.Asset,
	}
	s.mu.Unlock()

	if text == "" {
		// The server requires a message; an image-only turn rides on the
		// marker text.
		req.Message = imageMarker
	}
	if len(image) > 0 {
		req.Image = base64.StdEncoding.EncodeToString(image)
	}

	answer, err := s.svc.SendMessage(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if s.closed {
		// A late response must not mutate a session the UI already tore
		// down.
		return "", ErrSessionClosed
	}

	if err != nil {
		if errors.Is(err, ErrInvalidPIN) {
			s.state = StateUnauthenticated
			s.pin = ""
			if cacheErr := s.cache.Delete(s.key); cacheErr != nil {
				slog.Warn("Failed to clear the cached PIN", "error", cacheErr)
			}
		}
		return "", err
	}

	if s.state != StateAuthenticated {
		s.state = StateAuthenticated
	}
	if cacheErr := s.cache.Put(s.key, req.PIN); cacheErr != nil {
		slog.Warn("Failed to persist the PIN", "error", cacheErr)
	}

	userEntry := text
	if len(image) > 0 {
		if userEntry == "" {
			userEntry = imageMarker
		} else {
			userEntry += " " + imageMarker
		}
	}
	s.history = append(s.history,
		ChatTurn{Role: "user", Content: userEntry},
		ChatTurn{Role: "assistant", Content: answer},
	)
	return answer, nil
}

// State returns the current session state.
func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether a send is in flight.
func (s *ChatSession) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// History returns a copy of the visible conversation.
func (s *ChatSession) History() []ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

// Close marks the session closed. Safe to call multiple times; an in-flight
// send settles without touching the history.
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

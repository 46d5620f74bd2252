package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilitydesk/facilitydesk/services/assistant/datatypes"
	"github.com/facilitydesk/facilitydesk/services/content"
	"github.com/facilitydesk/facilitydesk/services/llm"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// MockLLMClient implements llm.Client for handler testing. It records the
// messages of the last call so tests can inspect the prompt.
type MockLLMClient struct {
	ChatResponse string
	ChatError    error
	LastMessages []llm.Message
}

func (m *MockLLMClient) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	m.LastMessages = messages
	return m.ChatResponse, m.ChatError
}

// seededStore builds a memory store with a small hierarchy: a property
// containing a PIN-protected building, a floor, a unit, and one asset.
func seededStore(t *testing.T, pin string) *content.MemoryStore {
	t.Helper()
	store := content.NewMemoryStore()
	store.PutLocation(content.LocationNode{ID: "prop-1", Kind: content.KindProperty, Name: "Stadtpark Ensemble"})
	store.PutLocation(content.LocationNode{
		ID: "bldg-1", Kind: content.KindBuilding, Name: "Haus A",
		ParentID: "prop-1", PIN: pin, TenantSlug: "stadtpark",
	})
	store.PutLocation(content.LocationNode{ID: "floor-2", Kind: content.KindFloor, Name: "2. OG", ParentID: "bldg-1"})
	store.PutLocation(content.LocationNode{ID: "unit-204", Kind: content.KindUnit, Name: "Wohnung 204", ParentID: "floor-2"})
	store.PutAsset(content.Asset{ID: "heater-1", Name: "Gastherme", LocationID: "unit-204"})
	return store
}

// createTestRouter creates a Gin router with the specified handler for testing.
func createTestRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	switch method {
	case "POST":
		router.POST(path, handler)
	case "GET":
		router.GET(path, handler)
	}
	return router
}

// performRequest executes an HTTP request against the test router.
func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func chatRouter(store content.Store, client llm.Client) *gin.Engine {
	return createTestRouter("POST", "/chat", HandleAssetChat(store, client, "openai", 5*time.Second))
}

// =============================================================================
// HandleAssetChat Tests
// =============================================================================

// TestHandleAssetChat_Success verifies the happy path: correct PIN, asset
// found, answer returned.
func TestHandleAssetChat_Success(t *testing.T) {
	store := seededStore(t, "1234")
	mockLLM := &MockLLMClient{ChatResponse: "The heater was installed in 2016."}
	router := chatRouter(store, mockLLM)

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "When was the heater installed?",
		PIN:     "1234",
		AssetID: "heater-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "The heater was installed in 2016.", response.Text)
}

// TestHandleAssetChat_SystemPromptContainsContext verifies the model sees a
// system turn carrying the location name and the serialized facility data.
func TestHandleAssetChat_SystemPromptContainsContext(t *testing.T) {
	store := seededStore(t, "1234")
	mockLLM := &MockLLMClient{ChatResponse: "ok"}
	router := chatRouter(store, mockLLM)

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "Hello",
		PIN:     "1234",
		AssetID: "heater-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, mockLLM.LastMessages, 2)
	system := mockLLM.LastMessages[0]
	assert.Equal(t, llm.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Facility Manager Assistant")
	assert.Contains(t, system.Content, "Wohnung 204")
	assert.Contains(t, system.Content, "Gastherme")
	// The building PIN must never leak into the prompt.
	assert.NotContains(t, system.Content, "1234")

	user := mockLLM.LastMessages[1]
	assert.Equal(t, llm.RoleUser, user.Role)
	assert.Equal(t, "Hello", user.Content)
}

// TestHandleAssetChat_ValidationOrder verifies each missing field produces
// its own error, checked message first, then assetId, then pin.
func TestHandleAssetChat_ValidationOrder(t *testing.T) {
	store := seededStore(t, "1234")
	router := chatRouter(store, &MockLLMClient{ChatResponse: "ok"})

	cases := []struct {
		name string
		body datatypes.ChatRequest
		want string
	}{
		{"missing message", datatypes.ChatRequest{PIN: "1234", AssetID: "heater-1"}, "message"},
		{"whitespace message", datatypes.ChatRequest{Message: "   ", PIN: "1234", AssetID: "heater-1"}, "message"},
		{"missing assetId", datatypes.ChatRequest{Message: "hi", PIN: "1234"}, "assetId"},
		{"missing pin", datatypes.ChatRequest{Message: "hi", AssetID: "heater-1"}, "pin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/chat", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

// TestHandleAssetChat_InvalidJSON verifies a malformed body returns 400.
func TestHandleAssetChat_InvalidJSON(t *testing.T) {
	store := seededStore(t, "1234")
	router := chatRouter(store, &MockLLMClient{})

	req, _ := http.NewRequest("POST", "/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleAssetChat_WrongPIN verifies a wrong PIN yields the plain-text
// 401 body without calling the model.
func TestHandleAssetChat_WrongPIN(t *testing.T) {
	store := seededStore(t, "1234")
	mockLLM := &MockLLMClient{ChatResponse: "never"}
	router := chatRouter(store, mockLLM)

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "hi", PIN: "9999", AssetID: "heater-1",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid PIN", w.Body.String())
	assert.Nil(t, mockLLM.LastMessages)
}

// TestHandleAssetChat_OpenAccessBuilding verifies a building without a PIN
// accepts any PIN value.
func TestHandleAssetChat_OpenAccessBuilding(t *testing.T) {
	store := seededStore(t, "")
	mockLLM := &MockLLMClient{ChatResponse: "ok"}
	router := chatRouter(store, mockLLM)

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "hi", PIN: "anything", AssetID: "heater-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

// TestHandleAssetChat_NoBuildingInChain verifies an asset whose chain never
// reaches a building is treated as open access, not as an error.
func TestHandleAssetChat_NoBuildingInChain(t *testing.T) {
	store := content.NewMemoryStore()
	store.PutLocation(content.LocationNode{ID: "lot-1", Kind: content.KindParkingFacility, Name: "Tiefgarage"})
	store.PutAsset(content.Asset{ID: "gate-1", Name: "Schranke", LocationID: "lot-1"})
	router := chatRouter(store, &MockLLMClient{ChatResponse: "ok"})

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "hi", PIN: "0000", AssetID: "gate-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

// TestHandleAssetChat_UnknownAsset verifies the plain-text 404 body.
func TestHandleAssetChat_UnknownAsset(t *testing.T) {
	store := seededStore(t, "1234")
	router := chatRouter(store, &MockLLMClient{})

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "hi", PIN: "1234", AssetID: "nope",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Asset not found", w.Body.String())
}

// TestHandleAssetChat_NilClient verifies configuration errors surface before
// any validation or store work.
func TestHandleAssetChat_NilClient(t *testing.T) {
	store := seededStore(t, "1234")
	router := chatRouter(store, nil)

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "hi", PIN: "1234", AssetID: "heater-1",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

// TestHandleAssetChat_LLMError verifies model failures map to a generic 500.
func TestHandleAssetChat_LLMError(t *testing.T) {
	store := seededStore(t, "1234")
	mockLLM := &MockLLMClient{ChatError: errors.New("upstream exploded")}
	router := chatRouter(store, mockLLM)

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "hi", PIN: "1234", AssetID: "heater-1",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to generate a response")
	assert.NotContains(t, w.Body.String(), "upstream exploded")
}

// TestHandleAssetChat_EmptyCompletion verifies an empty model answer maps to
// the "No text generated" error.
func TestHandleAssetChat_EmptyCompletion(t *testing.T) {
	store := seededStore(t, "1234")
	mockLLM := &MockLLMClient{ChatError: llm.ErrEmptyCompletion}
	router := chatRouter(store, mockLLM)

	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "hi", PIN: "1234", AssetID: "heater-1",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "No text generated")
}

// TestHandleAssetChat_ImageAttached verifies a valid base64 image reaches the
// model as an attachment on the user turn.
func TestHandleAssetChat_ImageAttached(t *testing.T) {
	store := seededStore(t, "1234")
	mockLLM := &MockLLMClient{ChatResponse: "That looks like a leaking valve."}
	router := chatRouter(store, mockLLM)

	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
		Message: "What is wrong here?", PIN: "1234", AssetID: "heater-1", Image: payload,
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, mockLLM.LastMessages, 2)
	img := mockLLM.LastMessages[1].Image
	require.NotNil(t, img)
	assert.Equal(t, "image/jpeg", img.MIME)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
}

// TestHandleAssetChat_MalformedImageDropped verifies bad image payloads of
// every shape are dropped without rejecting the request: the text question
// still gets a 200 and the model never sees an attachment.
func TestHandleAssetChat_MalformedImageDropped(t *testing.T) {
	cases := []struct {
		name  string
		image string
	}{
		{"raw payload that is not base64", "!!!not-base64!!!"},
		{"data URI with bad payload", "data:image/png;base64,%%%"},
		{"data URI without base64 marker", "data:image/png,abc"},
		{"data URI without comma", "data:image/png;base64"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := seededStore(t, "1234")
			mockLLM := &MockLLMClient{ChatResponse: "ok"}
			router := chatRouter(store, mockLLM)

			w := performRequest(router, "POST", "/chat", datatypes.ChatRequest{
				Message: "hi", PIN: "1234", AssetID: "heater-1", Image: tc.image,
			})

			assert.Equal(t, http.StatusOK, w.Code)
			require.Len(t, mockLLM.LastMessages, 2)
			assert.Nil(t, mockLLM.LastMessages[1].Image)
		})
	}
}

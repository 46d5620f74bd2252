// Package handlers implements the HTTP endpoints of the assistant service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/facilitydesk/facilitydesk/services/assistant/datatypes"
	"github.com/facilitydesk/facilitydesk/services/assistant/observability"
	"github.com/facilitydesk/facilitydesk/services/content"
	"github.com/facilitydesk/facilitydesk/services/llm"
)

var chatTracer = otel.Tracer("facilitydesk.assistant.handlers")

const systemPromptPreamble = "You are a Facility Manager Assistant with " +
	"access to building structure; try to locate the specific area for " +
	"reported issues"

// HandleAssetChat serves POST /chat. The caller proves access to an asset
// with the PIN of the building the asset sits in; buildings without a PIN
// are open access.
func HandleAssetChat(store content.Store, client llm.Client, backend string, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleAssetChat")
		defer span.End()
		started := time.Now()

		if client == nil {
			slog.Error("Chat request received but no LLM backend is configured")
			observability.RecordChatStatus("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Assistant is not configured"})
			return
		}

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			observability.RecordChatStatus("invalid_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			observability.RecordChatStatus("invalid_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		bundle, err := store.ResolveContext(ctx, req.AssetID)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				observability.RecordChatStatus("not_found")
				c.String(http.StatusNotFound, "Asset not found")
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to resolve the asset context", "asset_id", req.AssetID, "error", err)
			observability.RecordChatStatus("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load asset data"})
			return
		}

		switch {
		case bundle.Building == nil || bundle.Building.PIN == "":
			// No building or no PIN on it means the asset is open access.
			slog.Info("Open-access chat request", "asset_id", req.AssetID)
		case bundle.Building.PIN != req.PIN:
			slog.Warn("Rejected chat request with a wrong PIN",
				"asset_id", req.AssetID, "building_id", bundle.Building.ID)
			observability.RecordChatStatus("unauthorized")
			c.String(http.StatusUnauthorized, "Invalid PIN")
			return
		}

		prompt, err := buildSystemPrompt(bundle)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to build the system prompt", "asset_id", req.AssetID, "error", err)
			observability.RecordChatStatus("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load asset data"})
			return
		}

		userMsg := llm.Message{Role: llm.RoleUser, Content: req.Message}
		if req.Image != "" {
			img, imgErr := datatypes.DecodeImage(req.Image)
			if imgErr != nil {
				// A bad image drops silently so the text question still
				// gets answered.
				slog.Warn("Dropping malformed image attachment", "asset_id", req.AssetID, "error", imgErr)
			} else {
				userMsg.Image = img
			}
		}

		llmCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		answer, err := client.Chat(llmCtx, []llm.Message{
			{Role: llm.RoleSystem, Content: prompt},
			userMsg,
		}, llm.GenerationParams{})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("LLM chat call failed", "asset_id", req.AssetID, "backend", backend, "error", err)
			observability.RecordChatStatus("error")
			if errors.Is(err, llm.ErrEmptyCompletion) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "No text generated"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate a response"})
			return
		}
		if answer == "" {
			observability.RecordChatStatus("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No text generated"})
			return
		}

		observability.RecordChatStatus("success")
		if observability.DefaultMetrics != nil {
			observability.DefaultMetrics.ChatDurationSeconds.
				WithLabelValues(backend).Observe(time.Since(started).Seconds())
		}
		c.JSON(http.StatusOK, datatypes.ChatResponse{Text: answer})
	}
}

// buildSystemPrompt renders the context bundle into the grounding block of
// the system turn. The bundle is serialized as indented JSON so the model
// sees field names as-is.
func buildSystemPrompt(bundle *content.ContextBundle) (string, error) {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize the context bundle: %w", err)
	}
	return fmt.Sprintf("%s\n\nLocation: %s\n\nFacility data:\n%s",
		systemPromptPreamble, bundle.LocationName(), data), nil
}

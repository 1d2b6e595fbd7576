package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/0muji4/persona-prompt/internal/override"
	"github.com/0muji4/persona-prompt/internal/persona"
)

// Responder produces a model reply for a persona prompt.
type Responder interface {
	Reply(ctx context.Context, systemPrompt, message string) (string, error)
}

// PersonaHandler は MCP リクエストを persona / override ストアの操作に変換する Adapter です。
type PersonaHandler struct {
	personas  *persona.Store
	overrides *override.Store
	responder Responder
	defaultID string
	logger    *zap.Logger
}

// NewPersonaHandler は PersonaHandler を生成します。responder は nil でも構いません。
func NewPersonaHandler(personas *persona.Store, overrides *override.Store, responder Responder, defaultID string, logger *zap.Logger) *PersonaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonaHandler{
		personas:  personas,
		overrides: overrides,
		responder: responder,
		defaultID: defaultID,
		logger:    logger,
	}
}

// CanPreview reports whether a Responder is configured.
func (h *PersonaHandler) CanPreview() bool {
	return h.responder != nil
}

// PromptResult is the payload of the persona_prompt tool.
type PromptResult struct {
	Prompt string       `json:"prompt"`
	Meta   persona.Meta `json:"meta"`
}

// OverrideResult is the payload of the override tools.
type OverrideResult struct {
	PersonaID string          `json:"persona_id"`
	Override  override.Record `json:"override"`
}

// HandleList は persona_list ツールを処理します。
func (h *PersonaHandler) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := h.personas.List()
	if err != nil {
		return h.errorResult("list personas", err), nil
	}
	if ids == nil {
		ids = []string{}
	}
	return jsonResult(map[string]any{"personas": ids, "default": h.defaultID})
}

// HandlePrompt は persona_prompt ツールを処理し、保存済み override を適用したプロンプトを返します。
func (h *PersonaHandler) HandlePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := h.personaID(req)
	if errResult != nil {
		return errResult, nil
	}

	var rec override.Record
	if req.GetBool("apply_override", true) {
		rec = h.loadOverride(id)
	}

	prompt, meta, err := h.personas.Load(id, rec)
	if err != nil {
		return h.errorResult("load persona", err), nil
	}
	return jsonResult(PromptResult{Prompt: prompt, Meta: meta})
}

// HandleOverrideGet は persona_override_get ツールを処理します。
func (h *PersonaHandler) HandleOverrideGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := h.personaID(req)
	if errResult != nil {
		return errResult, nil
	}
	rec, err := h.overrides.Load(id)
	if err != nil {
		return h.errorResult("load override", err), nil
	}
	return jsonResult(OverrideResult{PersonaID: id, Override: rec})
}

// HandleOverrideSave は persona_override_save ツールを処理します。
// 渡されたフィールドで既存の override を丸ごと置き換えます。
func (h *PersonaHandler) HandleOverrideSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := h.personaID(req)
	if errResult != nil {
		return errResult, nil
	}
	if _, _, err := h.personas.Document(id); err != nil {
		return h.errorResult("load persona", err), nil
	}

	args := req.GetArguments()
	rec := override.Record{}
	for _, f := range override.Fields {
		if v, ok := args[f.Name]; ok {
			rec[f.Name] = v
		}
	}

	if err := h.overrides.Save(id, rec); err != nil {
		return h.errorResult("save override", err), nil
	}
	h.logger.Info("Saved persona override", zap.String("persona_id", id), zap.Int("fields", len(rec)))
	return jsonResult(OverrideResult{PersonaID: id, Override: rec})
}

// HandleOverrideDelete は persona_override_delete ツールを処理します。
func (h *PersonaHandler) HandleOverrideDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := h.personaID(req)
	if errResult != nil {
		return errResult, nil
	}
	if err := h.overrides.Delete(id); err != nil {
		return h.errorResult("delete override", err), nil
	}
	h.logger.Info("Deleted persona override", zap.String("persona_id", id))
	return mcp.NewToolResultText(fmt.Sprintf("override for %q deleted", id)), nil
}

// HandlePreview は persona_preview ツールを処理し、ペルソナとして LLM に応答させます。
func (h *PersonaHandler) HandlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.responder == nil {
		return mcp.NewToolResultError("preview is not configured (GEMINI_API_KEY is empty)"), nil
	}
	id, errResult := h.personaID(req)
	if errResult != nil {
		return errResult, nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message is required"), nil
	}

	prompt, _, err := h.personas.Load(id, h.loadOverride(id))
	if err != nil {
		return h.errorResult("load persona", err), nil
	}

	reply, err := h.responder.Reply(ctx, prompt, message)
	if err != nil {
		return h.errorResult("agent", err), nil
	}
	return mcp.NewToolResultText(reply), nil
}

// loadOverride は override を読み込みます。失敗してもプロンプトの読み込みは止めません。
func (h *PersonaHandler) loadOverride(id string) override.Record {
	rec, err := h.overrides.Load(id)
	if err != nil {
		h.logger.Warn("Ignoring unavailable override", zap.String("persona_id", id), zap.Error(err))
		return override.Record{}
	}
	return rec
}

func (h *PersonaHandler) personaID(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id := strings.TrimSpace(req.GetString("persona_id", h.defaultID))
	if id == "" {
		return "", mcp.NewToolResultError("persona_id is required")
	}
	return id, nil
}

func (h *PersonaHandler) errorResult(op string, err error) *mcp.CallToolResult {
	h.logger.Warn("Tool call failed", zap.String("op", op), zap.Error(err))
	switch {
	case errors.Is(err, persona.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("persona not found: %v", err))
	case errors.Is(err, persona.ErrValidation):
		return mcp.NewToolResultError(fmt.Sprintf("persona file malformed: %v", err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", op, err))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

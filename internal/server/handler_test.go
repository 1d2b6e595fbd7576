package server

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0muji4/persona-prompt/internal/override"
	"github.com/0muji4/persona-prompt/internal/persona"
)

const ariaYAML = `
persona:
  id: aria
  name: Aria
  role: assistant
identity:
  description: Helpful guide.
`

type stubResponder struct {
	systemPrompt string
	message      string
	reply        string
	err          error
}

func (s *stubResponder) Reply(ctx context.Context, systemPrompt, message string) (string, error) {
	s.systemPrompt = systemPrompt
	s.message = message
	return s.reply, s.err
}

func newTestHandler(t *testing.T, responder Responder) *PersonaHandler {
	t.Helper()
	root := t.TempDir()
	personaDir := filepath.Join(root, "persona")
	require.NoError(t, os.MkdirAll(personaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(personaDir, "aria.yaml"), []byte(ariaYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(personaDir, "empty.yaml"), []byte("persona: {}\n"), 0o644))

	return NewPersonaHandler(
		persona.NewStore(personaDir, nil),
		override.NewStore(filepath.Join(root, "data", "persona_overrides"), nil),
		responder,
		"aria",
		nil,
	)
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandlePrompt_DefaultPersona(t *testing.T) {
	h := newTestHandler(t, nil)

	res, err := h.HandlePrompt(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out PromptResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "Persona: Aria, assistant, aria\n\nIdentity:\nHelpful guide.", out.Prompt)
	assert.Equal(t, "aria", out.Meta.ID)
	assert.Equal(t, "Aria", out.Meta.Name)
}

func TestHandleOverride_Lifecycle(t *testing.T) {
	h := newTestHandler(t, nil)
	ctx := context.Background()

	res, err := h.HandleOverrideSave(ctx, call(map[string]any{
		"persona_id": "aria",
		"name":       "Iris",
		"verbosity":  "high",
		"role":       "not allowed",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	res, err = h.HandleOverrideGet(ctx, call(map[string]any{"persona_id": "aria"}))
	require.NoError(t, err)
	var got OverrideResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, override.Record{"name": "Iris", "verbosity": "high"}, got.Override)

	res, err = h.HandlePrompt(ctx, call(map[string]any{"persona_id": "aria"}))
	require.NoError(t, err)
	var prompt PromptResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &prompt))
	assert.Contains(t, prompt.Prompt, "Persona: Iris, assistant, aria")
	assert.Contains(t, prompt.Prompt, "- verbosity: high")

	res, err = h.HandlePrompt(ctx, call(map[string]any{"persona_id": "aria", "apply_override": false}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &prompt))
	assert.Contains(t, prompt.Prompt, "Persona: Aria, assistant, aria")

	res, err = h.HandleOverrideDelete(ctx, call(map[string]any{"persona_id": "aria"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	res, err = h.HandleOverrideGet(ctx, call(map[string]any{"persona_id": "aria"}))
	require.NoError(t, err)
	got = OverrideResult{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Empty(t, got.Override)
}

func TestHandlers_Errors(t *testing.T) {
	h := newTestHandler(t, nil)
	ctx := context.Background()

	res, err := h.HandlePrompt(ctx, call(map[string]any{"persona_id": "missing_id"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "persona not found")

	res, err = h.HandlePrompt(ctx, call(map[string]any{"persona_id": "empty"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "persona file malformed")

	res, err = h.HandleOverrideSave(ctx, call(map[string]any{"persona_id": "missing_id", "name": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.HandlePreview(ctx, call(map[string]any{"message": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	noDefault := NewPersonaHandler(h.personas, h.overrides, nil, "", nil)
	res, err = noDefault.HandleOverrideGet(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "persona_id is required")
}

func TestHandlePreview(t *testing.T) {
	stub := &stubResponder{reply: "Olá!"}
	h := newTestHandler(t, stub)
	ctx := context.Background()

	res, err := h.HandlePreview(ctx, call(map[string]any{"persona_id": "aria", "message": "hello"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Olá!", resultText(t, res))
	assert.Equal(t, "hello", stub.message)
	assert.Contains(t, stub.systemPrompt, "Helpful guide.")

	stub.err = errors.New("boom")
	res, err = h.HandlePreview(ctx, call(map[string]any{"persona_id": "aria", "message": "hello"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.HandlePreview(ctx, call(map[string]any{"persona_id": "aria"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleList(t *testing.T) {
	h := newTestHandler(t, nil)

	res, err := h.HandleList(context.Background(), call(nil))
	require.NoError(t, err)

	var out struct {
		Personas []string `json:"personas"`
		Default  string   `json:"default"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.ElementsMatch(t, []string{"aria", "empty"}, out.Personas)
	assert.Equal(t, "aria", out.Default)
}

func TestHandlers_UnavailableOverrideDirDoesNotBlockPrompt(t *testing.T) {
	h := newTestHandler(t, &stubResponder{reply: "ok"})
	blocked := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocked, []byte("file"), 0o644))
	h = NewPersonaHandler(h.personas, override.NewStore(blocked, nil), h.responder, "aria", nil)
	ctx := context.Background()

	res, err := h.HandlePrompt(ctx, call(map[string]any{"persona_id": "aria"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	var out PromptResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Contains(t, out.Prompt, "Persona: Aria, assistant, aria")
	assert.Empty(t, out.Meta.OverrideApplied)

	res, err = h.HandlePreview(ctx, call(map[string]any{"persona_id": "aria", "message": "hi"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "ok", resultText(t, res))
}

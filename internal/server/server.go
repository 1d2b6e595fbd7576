package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New は MCP サーバーを生成し、ツールを登録して返します。
// ビジネスロジックは handler に委譲し、ここではプロトコル変換のみ行います。
func New(handler *PersonaHandler) *server.MCPServer {
	s := server.NewMCPServer(
		"persona-prompt",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	personaID := mcp.WithString("persona_id",
		mcp.Description("ペルソナ ID（persona ディレクトリ内の <id>.yaml）。省略時は PERSONA_DEFAULT_ID"),
	)

	s.AddTool(mcp.NewTool("persona_list",
		mcp.WithDescription("利用可能なペルソナ ID の一覧を返します。"),
	), handler.HandleList)

	s.AddTool(mcp.NewTool("persona_prompt",
		mcp.WithDescription("ペルソナ YAML を読み込み、システムプロンプトとメタデータを返します。"),
		personaID,
		mcp.WithBoolean("apply_override",
			mcp.Description("保存済みの override を適用するか。デフォルト: true"),
		),
	), handler.HandlePrompt)

	s.AddTool(mcp.NewTool("persona_override_get",
		mcp.WithDescription("ペルソナの override レコードを返します。存在しない場合は空です。"),
		personaID,
	), handler.HandleOverrideGet)

	s.AddTool(mcp.NewTool("persona_override_save",
		mcp.WithDescription("ペルソナの override レコードを丸ごと置き換えます。"),
		personaID,
		mcp.WithString("name", mcp.Description("persona.name を上書き")),
		mcp.WithString("description", mcp.Description("identity.description を上書き")),
		mcp.WithString("preferred_language", mcp.Description("languages.preferred を上書き")),
		mcp.WithString("verbosity", mcp.Description("behavior.interaction_style.verbosity を上書き")),
	), handler.HandleOverrideSave)

	s.AddTool(mcp.NewTool("persona_override_delete",
		mcp.WithDescription("ペルソナの override レコードを削除します。"),
		personaID,
	), handler.HandleOverrideDelete)

	if handler.CanPreview() {
		s.AddTool(mcp.NewTool("persona_preview",
			mcp.WithDescription("ペルソナのプロンプトを system instruction として Gemini に応答させます。"),
			personaID,
			mcp.WithString("message",
				mcp.Required(),
				mcp.Description("ペルソナに送るユーザーメッセージ"),
			),
		), handler.HandlePreview)
	}

	return s
}

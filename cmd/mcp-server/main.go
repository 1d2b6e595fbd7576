package main

import (
	"context"
	"fmt"
	"log"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/0muji4/persona-prompt/internal/agent"
	"github.com/0muji4/persona-prompt/internal/config"
	"github.com/0muji4/persona-prompt/internal/override"
	"github.com/0muji4/persona-prompt/internal/persona"
	"github.com/0muji4/persona-prompt/internal/server"
)

func main() {
	// --- 環境変数の読み込み ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// --- DI: Adapter 層の組み立て ---
	personas := persona.NewStore(cfg.PersonaDir, logger.Named("persona"))
	overrides := override.NewStore(cfg.OverrideDir, logger.Named("override"))

	var responder server.Responder
	if cfg.GeminiAPIKey != "" {
		p, err := agent.NewPreviewer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, logger.Named("agent"))
		if err != nil {
			logger.Fatal("Failed to create previewer", zap.Error(err))
		}
		responder = p
	}

	handler := server.NewPersonaHandler(personas, overrides, responder, cfg.DefaultID, logger.Named("server"))
	s := server.New(handler)

	// --- Framework: MCP stdio サーバーの起動 ---
	fmt.Fprintln(os.Stderr, "persona-prompt MCP server starting...")
	logger.Info("Serving",
		zap.String("persona_dir", personas.Dir()),
		zap.String("override_dir", overrides.Dir()),
		zap.Bool("preview", handler.CanPreview()))
	if err := mcpserver.ServeStdio(s); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

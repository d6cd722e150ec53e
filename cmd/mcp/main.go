// DreamTeam MCP server: exposes the workspace's finance, knowledge base
// and messaging tables as MCP tools over stdio, so LLM agents can read and
// write business data during a chat turn.
//
// Logs go to stderr so they don't interfere with the stdio transport.
package main

import (
	"fmt"
	"os"

	"github.com/dtj0108/dreamteam/internal/mcptools"
	"github.com/dtj0108/dreamteam/pkg/config"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("dreamteam-mcp")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	log := logger.GetLogger()

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	s := mcptools.NewServer(db, &cfg.MCP, log)
	log.Info("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		log.Error("MCP server stopped", zap.Error(err))
		return err
	}
	return nil
}

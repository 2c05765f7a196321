// leadgen_research: industry research MCP server for the lead-gen dashboard.
//
// Mines YouTube marketing videos for an industry, caches their transcripts,
// extracts insights with an LLM and stores the results for outreach drafting.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/msaym22/final-lead-gen-sub001/internal/bootstrap"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"github.com/msaym22/final-lead-gen-sub001/internal/leadserver"
)

const serverName = "leadgen_research"

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8891")
)

func main() {
	bootstrap.SetupLogging()

	svc, err := bootstrap.New(context.Background(), bootstrap.ConfigFromEnv())
	if err != nil {
		slog.Error("init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("shutdown", slog.Any("error", err))
		}
	}()

	slog.Info("starting "+serverName, slog.String("port", mcpPort))

	server := leadserver.NewServer(serverName, version, leadserver.DepsFrom(svc))
	slog.Info("tools registered", slog.Int("count", leadserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         serverName,
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

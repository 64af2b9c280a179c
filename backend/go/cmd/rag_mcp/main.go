package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/mcp"
	"pdfrag/backend/go/internal/rag_service/app"
	"pdfrag/backend/go/pkg/logger"

	"github.com/mark3labs/mcp-go/server"
)

// STDIO transport (default)
//go run ./cmd/rag_mcp
//
// SSE transport on port 8085
//go run ./cmd/rag_mcp -transport=sse -port=8085
//
// StreamableHTTP transport on port 9000
//go run ./cmd/rag_mcp -transport=httpstream -port=9000

func main() {
	transport := flag.String("transport", "stdio", "Transport method: stdio, sse, or httpstream")
	port := flag.String("port", "8085", "Port for HTTP-based transports (sse, httpstream)")
	configPath := flag.String("config", "config/config.yaml", "Path to the YAML configuration")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, *configPath, *transport, *port)
	stop()
	if err != nil {
		log.Printf("rag_mcp: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, transport, port string) error {
	switch transport {
	case "stdio", "sse", "httpstream":
	default:
		return fmt.Errorf("unknown transport %q, use stdio, sse, or httpstream", transport)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// stdout carries the stdio protocol, so logs go to stderr.
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	logger.SetOutput(os.Stderr)
	appLogger := logger.New("rag_mcp", "", "")

	rag, err := app.New(ctx, cfg, appLogger, app.Options{})
	if err != nil {
		app.LogError(appLogger, err, "failed to initialize RAG components")
		return err
	}
	defer rag.Close()
	if err := rag.Start(ctx); err != nil {
		app.LogError(appLogger, err, "failed to start indexing queue")
		return err
	}

	s := mcp.NewServer(cfg.App.Name, cfg.App.Version, mcp.NewTools(rag.Service, appLogger))

	switch transport {
	case "sse":
		appLogger.With("port", port).Info("Starting MCP server with SSE transport")
		err = server.NewSSEServer(s).Start(":" + port)
	case "httpstream":
		appLogger.With("port", port).Info("Starting MCP server with StreamableHTTP transport")
		err = server.NewStreamableHTTPServer(s).Start(":" + port)
	default:
		appLogger.Info("Starting MCP server with STDIO transport")
		err = server.ServeStdio(s)
	}
	if err != nil {
		app.LogError(appLogger, err, "MCP server error")
	}
	return err
}

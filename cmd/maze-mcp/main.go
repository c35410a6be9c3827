package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/maze-ar-mcp/internal/config"
	"github.com/ironsheep/maze-ar-mcp/internal/logging"
	"github.com/ironsheep/maze-ar-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("maze-ar-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("maze-ar-mcp - MCP server for maze solving and path projection")
			fmt.Println()
			fmt.Println("Usage: maze-ar-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env):")
			fmt.Println("  MAZE_MCP_LOG_LEVEL=debug        trace, debug, info, warn, error")
			fmt.Println("  MAZE_MCP_LOG_FORMAT=json        text, json, nested")
			fmt.Println("  MAZE_MCP_LOG_FILE=path          Also write a rotated log file")
			fmt.Println("  MAZE_MCP_MAX_DIMENSION=1024     Downsample larger images (0 = off)")
			fmt.Println("  MAZE_MCP_TEMPLATE_RADIUS=7      Block matching patch half-size")
			fmt.Println("  MAZE_MCP_SEARCH_RADIUS=12       Block matching search half-size")
			fmt.Println("  MAZE_MCP_BLUR_RADIUS=1.0        Smoothing before matching")
			fmt.Println("  MAZE_MCP_RANSAC_ITERATIONS=200  Robust estimation samples")
			fmt.Println("  MAZE_MCP_RANSAC_THRESHOLD=3     Inlier distance in pixels")
			fmt.Println("  MAZE_MCP_RANSAC_SEED=0          Sampling seed (0 = fixed default)")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "maze-ar-mcp: %v\n", err)
		os.Exit(1)
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "maze-ar-mcp: %v\n", err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
	}).Debug("maze MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger, server.WithVersion(Version))
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("server error")
	}
}

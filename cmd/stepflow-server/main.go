// Package main provides the entry point for the stepflow HTTP/SSE server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stepflow/stepflow/internal/engine"
	"github.com/stepflow/stepflow/internal/server"
)

var (
	port        = flag.Int("port", 8080, "Server port")
	directory   = flag.String("directory", "", "Working directory")
	autoApprove = flag.Bool("auto-approve", false, "Auto-approve all tool executions")
	noCORS      = flag.Bool("no-cors", false, "Disable permissive CORS headers")
	model       = flag.String("model", "", "Model to use (provider/model format)")
	version     = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("stepflow-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	workDir := *directory
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			log.Fatalf("Failed to get working directory: %v", err)
		}
	}

	log.Printf("Starting stepflow server v%s", Version)
	log.Printf("Working directory: %s", workDir)

	ctx := context.Background()

	// A server has no terminal to prompt on, same as the headless CLI's
	// own Runner: "ask" decisions fall back to --auto-approve or deny.
	boot, err := engine.New(ctx, engine.Options{
		WorkDir:       workDir,
		AutoApprove:   *autoApprove,
		ModelOverride: *model,
	})
	if err != nil {
		log.Fatalf("Failed to bootstrap engine: %v", err)
	}
	if boot.MCPClient != nil {
		defer boot.MCPClient.Close()
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = *port
	serverConfig.EnableCORS = !*noCORS

	srv := server.New(serverConfig, boot)

	go func() {
		log.Printf("Server listening on http://localhost:%d", *port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VinMeld/campus-chat/internal/logging"
	"github.com/VinMeld/campus-chat/internal/server"
)

func main() {
	var (
		configPath string
		port       string
		dataDir    string
	)
	flag.StringVar(&configPath, "config", "", "YAML config file")
	flag.StringVar(&port, "port", "", "Server port (overrides config and env PORT)")
	flag.StringVar(&dataDir, "data", "", "Data directory (overrides config and env DATA_DIR)")
	flag.Parse()

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port != "" {
		cfg.Port = port
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	logging.Init(cfg.LogLevel, "json", os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init server: %v", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}

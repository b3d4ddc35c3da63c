// Package main is the entry point for the Lumina photo frame backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumina-frame/lumina-photoframe-backend/internal/domain/rotation"
	"github.com/lumina-frame/lumina-photoframe-backend/internal/infra/supply"
	"github.com/lumina-frame/lumina-photoframe-backend/internal/transport/rest"
	"github.com/lumina-frame/lumina-photoframe-backend/internal/transport/socketio"
	"github.com/lumina-frame/lumina-photoframe-backend/internal/version"
)

func main() {
	// Command line flags
	port := flag.String("port", "3000", "HTTP server port")
	supplyURL := flag.String("supply-url", supply.DefaultBaseURL, "Photo supply API base URL")
	supplyKey := flag.String("supply-key", os.Getenv("LUMINA_SUPPLY_KEY"), "Photo supply API access key")
	window := flag.Duration("window", rotation.DefaultWindowDuration, "Rotation window duration (kept under the frontend's 60m display cycle)")
	maxFrames := flag.Int("max-frames", 8, "Maximum concurrent non-localhost photo frames (0 = unlimited)")
	staticDir := flag.String("static", "", "Directory to serve static files from (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *supplyKey == "" {
		log.Fatal().Msg("Photo supply access key required (-supply-key or LUMINA_SUPPLY_KEY)")
	}

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Photo Frame Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("supply_url", *supplyURL).
		Dur("window", *window).
		Int("max_frames", *maxFrames).
		Bool("key_set", *supplyKey != "").
		Msg("Configuration")

	// Create supply client and rotation manager
	supplyClient := supply.NewClient(*supplyKey, supply.WithBaseURL(*supplyURL))
	manager := rotation.NewManager(supplyClient, rotation.Config{
		WindowDuration: *window,
	})

	// Create Socket.io server for frame push
	socketServer, err := socketio.NewServer(manager, *maxFrames)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	// Start rotation watcher for Socket.IO push notifications
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	socketServer.StartRotationWatcher(ctx, time.Minute)

	// Setup HTTP server
	mux := http.NewServeMux()

	// Socket.io endpoint
	mux.Handle("/socket.io/", socketServer)

	// Photo endpoints
	rest.NewHandler(manager).Register(mux)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if manager.WindowStartedAt().IsZero() {
			w.Write([]byte(`{"status":"ok","rotation":"pending"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","rotation":"active"}`))
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	// Serve static files if directory specified (SPA mode)
	if *staticDir != "" {
		log.Info().Str("dir", *staticDir).Msg("Serving static files")
		fs := http.FileServer(http.Dir(*staticDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// Check if the file exists
			path := staticFilePath(*staticDir, r.URL.Path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				// For SPA routing, serve index.html for non-existing paths
				http.ServeFile(w, r, filepath.Join(*staticDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	// Start HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}

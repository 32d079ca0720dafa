// Inference service - scores uploaded speech for deepfake artifacts
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Krishang91/capstone/internal/config"
	"github.com/Krishang91/capstone/internal/scorer"
	"github.com/Krishang91/capstone/internal/server"
	"github.com/Krishang91/capstone/internal/service"
	"github.com/Krishang91/capstone/internal/transcriber"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	var (
		configPath string
		addr       string
		modelPath  string
	)

	root := &cobra.Command{
		Use:   "server",
		Short: "Deepfake speech detection service",
		Long: `HTTP service that scores uploaded WAV recordings for deepfake
artifacts. The model is loaded in the background after the listener
comes up; until it finishes, /health reports degraded and /predict
answers 503.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadServer()
			if configPath != "" {
				if err := config.ApplyFile(configPath, cfg); err != nil {
					return err
				}
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			if modelPath != "" {
				cfg.ModelPath = modelPath
			}
			return run(cfg)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "YAML config overlay")
	root.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	root.Flags().StringVar(&modelPath, "model", "", "ONNX model path (overrides config)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Server) error {
	var stt transcriber.Transcriber
	if cfg.WhisperModelPath != "" {
		t, err := transcriber.NewWhisper(cfg.WhisperModelPath)
		if err != nil {
			slog.Warn("transcriber disabled", "error", err)
		} else {
			stt = t
		}
	}

	svc := service.New(cfg, stt)
	srv := server.New(svc, cfg)

	// The model can take a while to load on small boards. Serve
	// degraded in the meantime instead of blocking startup.
	go func() {
		started := time.Now()
		sc, err := scorer.Load(cfg.ModelPath, cfg.ORTLibPath)
		if err != nil {
			slog.Warn("model load failed, serving degraded",
				"model", cfg.ModelPath, "native", scorer.NativeAvailable(), "error", err)
			return
		}
		svc.SetScorer(sc)
		slog.Info("model loaded", "model", cfg.ModelPath, "duration", time.Since(started))
	}()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("inference service starting",
			"http", cfg.HTTPAddr, "model", cfg.ModelPath,
			"variant", cfg.ModelVariant, "threshold", cfg.Threshold)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// Edge client - button-triggered capture with LED verdict feedback
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Krishang91/capstone/internal/client"
	"github.com/Krishang91/capstone/internal/config"
	"github.com/Krishang91/capstone/internal/edge"
	"github.com/Krishang91/capstone/internal/resilience"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var configPath string

	root := &cobra.Command{
		Use:   "edge",
		Short: "Push-to-capture deepfake detection client",
		Long: `Runs the capture loop on the device: hold the button to record,
release to send the clip to the inference service. The green LED
signals a real verdict, the red LED a fake one, both flashing
together signal an error.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config overlay")

	selftest := &cobra.Command{
		Use:   "selftest",
		Short: "Exercise the LEDs and the button without the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runSelftest(cfg)
		},
	}
	root.AddCommand(selftest)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Edge, error) {
	cfg := config.LoadEdge()
	if path != "" {
		if err := config.ApplyFile(path, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func run(cfg *config.Edge) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	red, err := edge.OpenLED(cfg.GPIOChip, cfg.RedLEDPin)
	if err != nil {
		return err
	}
	defer red.Close()

	green, err := edge.OpenLED(cfg.GPIOChip, cfg.GreenLEDPin)
	if err != nil {
		return err
	}
	defer green.Close()

	trigger, err := edge.NewGPIOTrigger(cfg.GPIOChip, cfg.TriggerPin, cfg.Debounce)
	if err != nil {
		return err
	}
	defer trigger.Close()

	api := client.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("waiting for inference service", "url", cfg.ServiceURL)
	err = resilience.Retry(ctx, resilience.HealthWaitConfig(), func() error {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		return api.Health(probeCtx)
	})
	if err != nil {
		return fmt.Errorf("inference service never became ready: %w", err)
	}
	slog.Info("inference service ready")

	loop := edge.New(cfg,
		trigger,
		edge.NewRecorder(cfg.SampleRate, edge.PortAudioFactory(cfg.SampleRate)),
		edge.NewPanel(red, green, edge.DefaultPatterns()),
		api,
		afero.NewOsFs())

	slog.Info("ready, hold the button to capture",
		"trigger_pin", cfg.TriggerPin, "sample_rate", cfg.SampleRate)
	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}

// runSelftest blinks both LEDs and then echoes button transitions for
// a few seconds, so the wiring can be checked without the service.
func runSelftest(cfg *config.Edge) error {
	red, err := edge.OpenLED(cfg.GPIOChip, cfg.RedLEDPin)
	if err != nil {
		return err
	}
	defer red.Close()

	green, err := edge.OpenLED(cfg.GPIOChip, cfg.GreenLEDPin)
	if err != nil {
		return err
	}
	defer green.Close()

	fmt.Println("blinking LEDs...")
	for i := 0; i < 3; i++ {
		red.Set(true)
		green.Set(true)
		time.Sleep(300 * time.Millisecond)
		red.Set(false)
		green.Set(false)
		time.Sleep(300 * time.Millisecond)
	}

	trigger, err := edge.NewGPIOTrigger(cfg.GPIOChip, cfg.TriggerPin, cfg.Debounce)
	if err != nil {
		return err
	}
	defer trigger.Close()

	fmt.Println("press the button (5 seconds)...")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-trigger.Events():
			if ev.Pressed {
				fmt.Println("  pressed")
				green.Set(true)
			} else {
				fmt.Println("  released")
				green.Set(false)
			}
		case <-deadline:
			green.Set(false)
			fmt.Println("selftest done")
			return nil
		}
	}
}

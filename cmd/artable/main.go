// artable - projected augmented reality table driven by ArUco markers
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-artable/internal/log"
	"github.com/teslashibe/go-artable/pkg/artable"
	"github.com/teslashibe/go-artable/pkg/camera"
)

func main() {
	cfg := parseFlags()

	app, err := artable.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		if errors.Is(err, camera.ErrOpen) || errors.Is(err, camera.ErrFirstFrame) {
			log.Error("camera unavailable, check the device and cabling", "error", err)
		} else {
			log.Error("initialization failed", "error", err)
		}
		app.Shutdown()
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	app.Shutdown()
	if runErr != nil {
		log.Error("runtime error", "error", runErr)
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() artable.Config {
	cfg := artable.DefaultConfig()

	flag.StringVar(&cfg.TablePath, "config", cfg.TablePath, "Table configuration file (overrides ARTABLE_CONFIG)")
	flag.StringVar(&cfg.ZonesPath, "zones", cfg.ZonesPath, "Zone file, reloaded on SIGHUP")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "Dashboard port, empty to disable")
	flag.StringVar(&cfg.NotifyURL, "notify", "", "Websocket URL receiving MARKER lines, e.g. ws://localhost:5500")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.BoolVar(&cfg.Preview, "preview", false, "Show the camera with detected markers during calibration")
	flag.DurationVar(&cfg.FrameInterval, "frame-interval", cfg.FrameInterval, "Minimum gap between dashboard camera frames")

	flag.Parse()
	return cfg
}

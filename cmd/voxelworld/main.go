package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxelworld/internal/config"
	"voxelworld/internal/server"
)

// forceExitAfter bounds how long a signalled shutdown may take.
const forceExitAfter = 10 * time.Second

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to voxel world configuration file")
	flag.Parse()

	wrote, err := writeConfigFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("apply environment config: %v", err)
	}
	switch {
	case wrote:
		log.Printf("configuration written to %s from environment", cfgPath)
	case cfgPath != "":
		log.Printf("configuration loaded from %s", cfgPath)
	default:
		log.Printf("no configuration file, using defaults")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Print(startupSummary(cfg))

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("initialise voxel world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		time.AfterFunc(forceExitAfter, func() {
			log.Printf("world did not stop within %s, exiting", forceExitAfter)
			os.Exit(1)
		})
	}()

	return ctx, cancel
}

func startupSummary(cfg *config.Config) string {
	endpoint := func(listen, path string) string {
		if listen == "" {
			return "disabled"
		}
		return "on " + listen + path
	}
	return fmt.Sprintf("seed %d, chunks %dx%d, water level %d, renderers %s, metrics %s",
		cfg.World.Seed, cfg.World.ChunkSize, cfg.World.Height, cfg.World.WaterLevel,
		endpoint(cfg.Render.Listen, cfg.Render.Path), endpoint(cfg.Metrics.Listen, cfg.Metrics.Path))
}

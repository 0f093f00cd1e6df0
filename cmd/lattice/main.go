// Package main provides the lattice modeling server entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/latticecad/lattice/internal/config"
	"github.com/latticecad/lattice/internal/kernel/brep"
	"github.com/latticecad/lattice/internal/server"
	"github.com/latticecad/lattice/internal/session"
	"github.com/latticecad/lattice/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to yaml config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if *debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		cancel()
	}()

	registry := session.NewRegistry(brep.New(),
		session.WithIdleTTL(cfg.SessionTTL()),
		session.WithSweepInterval(cfg.SweepInterval()),
	)
	svc := server.NewService(Version, cfg, registry)

	// Log level follows config file edits without restart.
	if *configPath != "" {
		w, err := watcher.New(*configPath, func() {
			reloaded, err := config.Load(*configPath)
			if err != nil {
				log.Warn().Err(err).Msg("Config reload failed, keeping current settings")
				return
			}
			if lvl, err := zerolog.ParseLevel(reloaded.LogLevel); err == nil {
				zerolog.SetGlobalLevel(lvl)
				log.Info().Str("level", reloaded.LogLevel).Msg("Log level reloaded")
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("Config watcher unavailable")
		} else {
			if err := w.Start(); err != nil {
				log.Warn().Err(err).Msg("Config watcher failed to start")
			}
			defer w.Stop()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error { return registry.RunReaper(gctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

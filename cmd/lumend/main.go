package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumenloop/lumend/internal/api"
	"github.com/lumenloop/lumend/internal/config"
	"github.com/lumenloop/lumend/internal/device"
	"github.com/lumenloop/lumend/internal/playlist"
	"github.com/lumenloop/lumend/internal/render"
)

func main() {
	var (
		configPath = flag.String("config", "lumend.yaml", "path to config file")
		deviceTag  = flag.String("device", "", "output device: preview | matrix | strip | term | opc (overrides config)")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		width      = flag.Int("width", 0, "target canvas width (overrides config)")
		height     = flag.Int("height", 0, "target canvas height (overrides config)")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *deviceTag != "" {
		cfg.Device = *deviceTag
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *width > 0 {
		cfg.Topology.Width = *width
	}
	if *height > 0 {
		cfg.Topology.Height = *height
	}
	cfg.Clamp()

	// Output device; hardware that refuses to open degrades to preview
	// so boot never fails on a dev machine.
	dev := device.New(cfg.Device, cfg, log.Logger)
	dev = device.OpenOrFallback(dev, log.Logger)
	if err := dev.SetBrightness(cfg.Topology.Brightness); err != nil {
		log.Warn().Err(err).Msg("initial brightness rejected")
	}

	ctrl := render.NewController(dev, cfg, log.Logger.With().Str("component", "renderer").Logger())

	var pl *playlist.Manager
	if cfg.PlaylistPath != "" {
		pl = playlist.New(cfg.PlaylistPath)
		ctrl.OnExhausted(func() (string, bool) {
			next := pl.Next()
			return next, next != ""
		})
	}

	state := api.NewState(ctrl, pl, log.Logger.With().Str("component", "api").Logger())
	if p, ok := dev.(*device.Preview); ok {
		p.SetOnFrame(state.BroadcastFrame)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      state.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("device", cfg.Device).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	_ = srv.Close()
	// Stop the worker, await its exit, then close the device.
	if err := ctrl.Close(); err != nil {
		log.Warn().Err(err).Msg("device close failed")
	}
}

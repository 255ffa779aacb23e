// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/gnss_status/internal/app"
	"github.com/relabs-tech/gnss_status/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (built-in defaults when empty)")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal().Msg("usage: replay [-config file] <nmea.log>")
	}

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()
	if err := cfg.Log.Setup(os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("file", flag.Arg(0)).Msg("replaying NMEA log")
	if err := app.RunReplay(ctx, cfg, flag.Arg(0)); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command hostdemo wires a process.Table and a host.Host onto a websocket
// listener: the ambient-stack demonstration binary of spec.md's DOMAIN
// STACK, grounded on services/wsprd/browspr/main's runtime-assembly shape
// (build the core object, attach a transport, serve).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lbfalvy/web-process-host/host"
	"github.com/lbfalvy/web-process-host/process"
	"github.com/lbfalvy/web-process-host/transport/ws"
	"github.com/rs/zerolog"
)

// config is loaded from the environment (and, if present, a .env file),
// per the caarlos0/env/v11 struct-tag convention.
type config struct {
	Addr        string        `env:"HOSTDEMO_ADDR" envDefault:":8686"`
	LogLevel    string        `env:"HOSTDEMO_LOG_LEVEL" envDefault:"info"`
	Sync        bool          `env:"HOSTDEMO_SYNC_ONLY" envDefault:"false"`
	ShutdownMax time.Duration `env:"HOSTDEMO_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "hostdemo: .env: %v\n", err)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "hostdemo: config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := host.New(ctx, nil, nil, cfg.Sync, &logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &logger)
		if err != nil {
			logger.Warn().Err(err).Msg("hostdemo: websocket upgrade failed")
			return
		}
		if _, err := h.Table.Start(conn, nil); err != nil {
			logger.Warn().Err(err).Msg("hostdemo: could not adopt incoming connection as a root process")
			_ = conn.Close()
		}
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("hostdemo: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("hostdemo: serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("hostdemo: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownMax)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("hostdemo: graceful shutdown failed")
	}
}

package main

import (
	"benritz/giltcalc/internal/config"
	"benritz/giltcalc/internal/curve"
	"benritz/giltcalc/internal/logging"
	"benritz/giltcalc/internal/server"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	addr := flag.String("addr", "", "listen address override")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg := server.Config{
		Addr:           conf.Server.Addr,
		AllowedOrigins: conf.Server.AllowedOrigins,
		MaxBodyBytes:   conf.Server.MaxBodyBytes,
		MaxBatchRows:   conf.Server.MaxBatchRows,
		Workers:        conf.Batch.Workers,
		Log:            logger,
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	if conf.Curve.Path != "" {
		if cfg.Curves, err = curve.LoadSpotCurves(conf.Curve.Path); err != nil {
			logger.Fatal("failed to load spot curves", zap.String("path", conf.Curve.Path), zap.Error(err))
		}
		logger.Info("loaded spot curves", zap.Int("dates", len(cfg.Curves.Dates())))
	}

	srv := server.New(cfg)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

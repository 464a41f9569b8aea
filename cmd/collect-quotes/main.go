package main

import (
	"benritz/giltcalc/internal/collect"
	"benritz/giltcalc/internal/config"
	"benritz/giltcalc/internal/logging"
	"benritz/giltcalc/internal/store"
	"benritz/giltcalc/internal/types"
	"errors"
	"time"

	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	configPath := flag.String("config", "", "path to configuration file")
	profile := flag.String("profile", "default", "the AWS profile to use")
	source := flag.String("source", "dmo", "the quote source: dmo or dividenddata")
	dateStr := flag.String("date", "", "the quote date (YYYY-MM-DD), defaults to today")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	helpFlag := flag.Bool("help", false, "print this help message")
	flag.Parse()
	args := flag.Args()

	if len(args) > 1 || *helpFlag {
		fmt.Printf("Usage: %s <flags> [destination]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}

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

	dst := conf.Data.Destination()
	if len(args) == 1 {
		dst = args[0]
	}
	if dst == "" {
		logger.Fatal("no destination given and no data bucket configured")
	}

	date := time.Now()
	if *dateStr != "" {
		if date, err = types.ParseDate(*dateStr); err != nil {
			logger.Fatal("invalid date", zap.Error(err))
		}
	}

	collector, err := collect.NewCollector(*source, logger)
	if err != nil || collector == nil {
		logger.Fatal("invalid source", zap.String("source", *source), zap.Error(err))
	}

	collected, err := collector.Collect(ctx, date)
	if err != nil {
		if errors.Is(err, types.ErrDataUnavailable) {
			logger.Warn("data unavailable", zap.String("source", collector.Source()))
		} else {
			logger.Error("failed to collect data", zap.Error(err))
		}
		os.Exit(1)
	}

	for _, failure := range collected.Failures {
		logger.Debug("skipped quote", zap.Error(failure.Err))
	}

	var s3Client store.S3API
	if _, err := store.ParseS3(dst); err == nil {
		if s3Client, err = store.NewS3Client(ctx, *profile); err != nil {
			logger.Fatal("failed to create s3 client", zap.Error(err))
		}
	}

	ds := &store.Dataset[store.QuoteRow]{
		Name: "quotes-" + collected.Source,
		Date: collected.QuoteDate,
		Rows: store.NewQuoteRows(collected.Quotes),
	}

	outPath, err := store.Store(ctx, ds, s3Client, dst)
	if err != nil {
		logger.Fatal("failed to store data", zap.Error(err))
	}

	logger.Info("stored quotes",
		zap.String("path", outPath),
		zap.Int("quotes", len(collected.Quotes)),
		zap.Int("failures", len(collected.Failures)),
	)
}

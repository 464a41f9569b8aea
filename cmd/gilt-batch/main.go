package main

import (
	"benritz/giltcalc/internal/batch"
	"benritz/giltcalc/internal/collect"
	"benritz/giltcalc/internal/config"
	"benritz/giltcalc/internal/curve"
	"benritz/giltcalc/internal/logging"
	"benritz/giltcalc/internal/pricing"
	"benritz/giltcalc/internal/store"
	"benritz/giltcalc/internal/types"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	configPath := flag.String("config", "", "path to configuration file")
	profile := flag.String("profile", "default", "the AWS profile to use")
	settlementStr := flag.String("settlement", "", "settlement date (YYYY-MM-DD), defaults to today")
	quotes := flag.String("quotes", "", "market quote source override: dmo or dividenddata")
	curvePath := flag.String("curve", "", "spot curve JSON override")
	cashflows := flag.Bool("cashflows", false, "also store the remaining cashflows")
	project := flag.String("project", "", "print a portfolio projection: monthly, quarterly, annual or five-yearly")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	helpFlag := flag.Bool("help", false, "print this help message")
	flag.Parse()
	args := flag.Args()

	if len(args) < 1 || len(args) > 2 || *helpFlag {
		fmt.Printf("Usage: %s <flags> <input> [destination]\n", filepath.Base(os.Args[0]))
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

	job := batch.Job{
		Input:          args[0],
		Output:         conf.Batch.Output,
		Settlement:     time.Now(),
		WriteCashflows: conf.Batch.WriteCashflows || *cashflows,
	}
	if len(args) == 2 {
		job.Output = args[1]
	}
	if job.Output == "" {
		job.Output = conf.Data.Destination()
	}
	if job.Output == "" {
		logger.Fatal("no destination given and none configured")
	}

	if *settlementStr != "" {
		if job.Settlement, err = types.ParseDate(*settlementStr); err != nil {
			logger.Fatal("invalid settlement date", zap.Error(err))
		}
	}

	source := conf.Batch.QuoteSource
	if *quotes != "" {
		source = *quotes
	}
	if job.Collector, err = collect.NewCollector(source, logger); err != nil {
		logger.Fatal("invalid quote source", zap.Error(err))
	}

	if path := firstNonEmpty(*curvePath, conf.Curve.Path); path != "" {
		if job.Curves, err = curve.LoadSpotCurves(path); err != nil {
			logger.Fatal("failed to load spot curves", zap.String("path", path), zap.Error(err))
		}
	}

	if strings.HasPrefix(job.Input, "s3://") || strings.HasPrefix(job.Output, "s3://") {
		if job.S3, err = store.NewS3Client(ctx, *profile); err != nil {
			logger.Fatal("failed to create s3 client", zap.Error(err))
		}
	}

	runner := batch.NewRunner(conf.Batch.Workers, logger)

	out, err := runner.RunJob(ctx, job)
	if err != nil {
		logger.Fatal("batch failed", zap.Error(err))
	}

	for _, path := range out.Paths {
		fmt.Printf("Stored to %s\n", path)
	}
	fmt.Printf("Valued %d of %d gilts\n", len(out.Results)-out.Failed, len(out.Results))

	if sum := out.Summary; sum.Holdings > 0 {
		fmt.Printf("\n%s\n", sum.Description())
		fmt.Printf("\tAverage coupon:   %.3f%%\n", sum.AverageCoupon)
		fmt.Printf("\tEarliest issue:   %s\n", sum.EarliestIssue.Format(types.DateLayout))
		fmt.Printf("\tLatest maturity:  %s\n", sum.LatestMaturity.Format(types.DateLayout))
		if !sum.NextCouponDate.IsZero() {
			fmt.Printf("\tNext coupon:      %s\n", sum.NextCouponDate.Format(types.DateLayout))
		}
		if sum.TotalAmount > 0 {
			fmt.Printf("\tTotal amount:     %.2f\n", sum.TotalAmount)
			fmt.Printf("\tMarket value:     %.2f\n", sum.MarketValue)
		}
	}

	if *project != "" {
		step, err := pricing.ParseProjectionStep(*project)
		if err != nil {
			logger.Fatal("invalid projection step", zap.Error(err))
		}

		points, err := batch.ProjectPortfolio(out.Results, job.Settlement, step)
		if err != nil {
			logger.Fatal("projection failed", zap.Error(err))
		}

		fmt.Printf("\nPortfolio projection (%s):\n", step)
		for _, p := range points {
			fmt.Printf("\t%s  %3d  %9.3f  %7.3f\n", p.Date.Format(types.DateLayout), p.Holdings, p.CleanPrice, p.ModifiedDurationYears)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

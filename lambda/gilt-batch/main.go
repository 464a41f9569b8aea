package main

import (
	"benritz/giltcalc/internal/batch"
	"benritz/giltcalc/internal/collect"
	"benritz/giltcalc/internal/config"
	"benritz/giltcalc/internal/curve"
	"benritz/giltcalc/internal/logging"
	"benritz/giltcalc/internal/store"
	"benritz/giltcalc/internal/types"
	"encoding/json"
	"strings"
	"time"

	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

var (
	ENV_BUCKET_NAME = "GILTS_DATA_BUCKET_NAME"
)

// batchMessage is the SQS message body. A body that is not JSON is taken to
// be the input location on its own.
type batchMessage struct {
	Input          string `json:"input"`
	SettlementDate string `json:"settlementDate,omitempty"`
}

func parseMessage(body string) (*batchMessage, error) {
	body = strings.TrimSpace(body)

	msg := &batchMessage{}
	if strings.HasPrefix(body, "{") {
		if err := json.Unmarshal([]byte(body), msg); err != nil {
			return nil, fmt.Errorf("invalid message: %v", err)
		}
	} else {
		msg.Input = body
	}

	if _, err := store.ParseS3(msg.Input); err != nil {
		return nil, fmt.Errorf("invalid input %q: %v", msg.Input, err)
	}

	return msg, nil
}

func runBatch(ctx context.Context, body string) error {
	conf, err := config.LoadConfiguration("")
	if err != nil {
		return err
	}

	dst := conf.Data.Destination()
	if dst == "" {
		return fmt.Errorf("%s is not set", ENV_BUCKET_NAME)
	}

	logger, err := logging.NewLogger(conf.Logging, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	msg, err := parseMessage(body)
	if err != nil {
		return err
	}

	job := batch.Job{
		Input:          msg.Input,
		Output:         dst,
		Settlement:     time.Now(),
		WriteCashflows: conf.Batch.WriteCashflows,
	}

	if msg.SettlementDate != "" {
		if job.Settlement, err = types.ParseDate(msg.SettlementDate); err != nil {
			return err
		}
	}

	if job.Collector, err = collect.NewCollector(conf.Batch.QuoteSource, logger); err != nil {
		return err
	}

	if conf.Curve.Path != "" {
		if job.Curves, err = curve.LoadSpotCurves(conf.Curve.Path); err != nil {
			return fmt.Errorf("failed to load spot curves: %v", err)
		}
	}

	if job.S3, err = store.NewS3Client(ctx, ""); err != nil {
		return err
	}

	out, err := batch.NewRunner(conf.Batch.Workers, logger).RunJob(ctx, job)
	if err != nil {
		return err
	}

	logger.Info("stored batch",
		zap.Strings("paths", out.Paths),
		zap.Int("rows", len(out.Results)),
		zap.Int("failed", out.Failed),
		zap.Float64("totalAmount", out.Summary.TotalAmount),
		zap.Float64("marketValue", out.Summary.MarketValue),
	)

	return nil
}

func responseWithFailure(failures []events.SQSBatchItemFailure, rec events.SQSMessage) []events.SQSBatchItemFailure {
	return append(failures, events.SQSBatchItemFailure{
		ItemIdentifier: rec.MessageId,
	})
}

func handler(ctx context.Context, request events.SQSEvent) (events.SQSEventResponse, error) {
	var failures []events.SQSBatchItemFailure
	var lastErr error

	for _, rec := range request.Records {
		if err := runBatch(ctx, rec.Body); err != nil {
			fmt.Printf("failed to run batch for message %s: %v\n", rec.MessageId, err)
			failures = responseWithFailure(failures, rec)
			lastErr = err
		}
	}

	if lastErr != nil {
		return events.SQSEventResponse{BatchItemFailures: failures}, fmt.Errorf("failed to run %d batches: %v", len(failures), lastErr)
	}

	return events.SQSEventResponse{}, nil
}

func main() {
	lambda.Start(handler)
}

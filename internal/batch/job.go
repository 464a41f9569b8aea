package batch

import (
	"context"
	"fmt"
	"os"
	"time"

	"benritz/giltcalc/internal/collect"
	"benritz/giltcalc/internal/curve"
	"benritz/giltcalc/internal/store"
	"benritz/giltcalc/internal/types"

	"go.uber.org/zap"
)

// Job describes one batch run from an input table to stored datasets.
type Job struct {
	// Input is a local table path or an s3:// object.
	Input string

	// Output is a local directory or an s3:// location.
	Output string

	Settlement     time.Time
	WriteCashflows bool

	// Collector, when set, supplies market prices for rows without one.
	// A failed collection is logged and the rows are model priced.
	Collector collect.Collector

	// Curves, when set, model price rows off the spot curve for Settlement.
	Curves *curve.SpotCurves

	S3 store.S3API
}

type JobOutput struct {
	Results []Result
	Summary Summary
	Paths   []string
	Failed  int
}

func (r *Runner) readInput(ctx context.Context, job Job) ([]Row, error) {
	path := job.Input

	if src, err := store.ParseS3(job.Input); err == nil {
		if job.S3 == nil {
			return nil, fmt.Errorf("no s3 client for %s", job.Input)
		}
		if path, err = store.FetchS3(ctx, job.S3, src); err != nil {
			return nil, err
		}
		defer os.Remove(path)
	}

	return ReadTable(path)
}

// RunJob reads the input table, values every row and stores the results, and
// optionally their cashflows and the collected quotes, under job.Output.
func (r *Runner) RunJob(ctx context.Context, job Job) (*JobOutput, error) {
	settlement := types.Date(job.Settlement)

	rows, err := r.readInput(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", job.Input, err)
	}

	runner := *r

	var quotes *collect.CollectedQuotes
	if job.Collector != nil {
		quotes, err = job.Collector.Collect(ctx, settlement)
		if err != nil {
			r.logger.Warn("no market quotes, using model prices",
				zap.String("source", job.Collector.Source()),
				zap.Error(err),
			)
			quotes = nil
		} else {
			runner.Quotes = NewQuoteIndex(quotes.Quotes)
			r.logger.Info("quotes indexed",
				zap.String("source", job.Collector.Source()),
				zap.Int("quotes", runner.Quotes.Len()),
			)
		}
	}

	if job.Curves != nil {
		spot, err := job.Curves.At(settlement)
		if err != nil {
			r.logger.Warn("no spot curve, using flat rates", zap.Error(err))
		} else {
			runner.Curve = spot
		}
	}

	results, err := runner.Run(ctx, rows, settlement)
	if err != nil {
		return nil, err
	}

	out := &JobOutput{Results: results, Summary: Summarise(results)}

	resultRows := make([]store.ResultRow, 0, len(results))
	var cashflowRows []store.CashflowRow
	for _, res := range results {
		resultRows = append(resultRows, res.ResultRow(settlement))
		if res.Err != nil {
			out.Failed++
			continue
		}
		cashflowRows = append(cashflowRows, store.NewCashflowRows(res.Row.Terms.ISIN, res.Valuation.Cashflows)...)
	}

	path, err := store.Store(ctx, &store.Dataset[store.ResultRow]{Name: "results", Date: settlement, Rows: resultRows}, job.S3, job.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to store results: %w", err)
	}
	out.Paths = append(out.Paths, path)

	if job.WriteCashflows {
		path, err := store.Store(ctx, &store.Dataset[store.CashflowRow]{Name: "cashflows", Date: settlement, Rows: cashflowRows}, job.S3, job.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to store cashflows: %w", err)
		}
		out.Paths = append(out.Paths, path)
	}

	if quotes != nil && len(quotes.Quotes) > 0 {
		path, err := store.Store(ctx, &store.Dataset[store.QuoteRow]{Name: "quotes", Date: settlement, Rows: store.NewQuoteRows(quotes.Quotes)}, job.S3, job.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to store quotes: %w", err)
		}
		out.Paths = append(out.Paths, path)
	}

	return out, nil
}

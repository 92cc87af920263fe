package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"alert-digest/internal/config"
	"alert-digest/internal/digest"
	"alert-digest/internal/grouping"
	"alert-digest/internal/metrics"
)

// Extractor converts one raw record into an event or a rejection.
type Extractor interface {
	Extract(rec digest.Record) (*digest.Event, *digest.Rejection)
}

// Summary describes one processing run.
type Summary struct {
	RunID         string
	Records       int
	Accepted      int
	Rejected      int
	AcceptancePct decimal.Decimal
	Dates         int
	Lines         int
	Took          time.Duration
}

// Result is everything a run produces.
type Result struct {
	Events     []digest.Event
	Report     *digest.Report
	Rejections []digest.Rejection
	Summary    Summary
}

// Service orchestrates extraction and grouping for a batch of records.
type Service struct {
	extractor Extractor
	recorder  *metrics.Recorder
	logger    zerolog.Logger

	workers   int
	sortDates bool
}

// New constructs the processing service. recorder may be nil.
func New(cfg *config.Config, extractor Extractor, recorder *metrics.Recorder, logger zerolog.Logger) *Service {
	workers := cfg.Extraction.Workers
	if workers < 1 {
		workers = 1
	}
	return &Service{
		extractor: extractor,
		recorder:  recorder,
		logger:    logger.With().Str("component", "service").Logger(),
		workers:   workers,
		sortDates: cfg.Report.SortDates,
	}
}

// outcome holds the extraction result of the record at the same index.
type outcome struct {
	event     *digest.Event
	rejection *digest.Rejection
}

// Process runs the pipeline over records. Rejections already collected by
// the source come first in the rejection log, followed by record
// rejections in input order. Only context cancellation returns an error.
func (s *Service) Process(ctx context.Context, records []digest.Record, sourceRejections []digest.Rejection) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()

	outcomes, err := s.extractAll(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("extract records: %w", err)
	}

	events := make([]digest.Event, 0, len(records))
	rejections := make([]digest.Rejection, 0, len(sourceRejections))
	rejections = append(rejections, sourceRejections...)
	for _, o := range outcomes {
		if o.event != nil {
			events = append(events, *o.event)
			continue
		}
		if o.rejection != nil {
			rejections = append(rejections, *o.rejection)
		}
	}

	report := grouping.Build(events)
	if s.sortDates {
		report = report.Sorted()
	}

	summary := Summary{
		RunID:         runID,
		Records:       len(records),
		Accepted:      len(events),
		Rejected:      len(records) - len(events),
		AcceptancePct: percentage(len(events), len(records)),
		Dates:         report.Len(),
		Lines:         report.LineCount(),
		Took:          time.Since(started),
	}

	s.recorder.Accepted(summary.Accepted)
	s.recorder.Rejected(rejections)
	s.recorder.Finished(summary.Lines, summary.Took, time.Now())

	logger.Info().
		Int("records", summary.Records).
		Int("accepted", summary.Accepted).
		Int("rejected", summary.Rejected).
		Int("source_failures", len(sourceRejections)).
		Str("acceptance_pct", summary.AcceptancePct.StringFixed(2)).
		Int("dates", summary.Dates).
		Int("lines", summary.Lines).
		Dur("took", summary.Took).
		Msg("run completed")

	return &Result{
		Events:     events,
		Report:     report,
		Rejections: rejections,
		Summary:    summary,
	}, nil
}

// extractAll fans records out to a bounded worker pool. Each worker writes
// only its own slot, so the merge keeps input order without locking.
func (s *Service) extractAll(ctx context.Context, records []digest.Record) ([]outcome, error) {
	outcomes := make([]outcome, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, rej := s.extractor.Extract(rec)
			outcomes[i] = outcome{event: ev, rejection: rej}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func percentage(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

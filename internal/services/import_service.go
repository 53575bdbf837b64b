package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ingest"
	"fintrack/internal/log"
	"fintrack/internal/sheets"

	"github.com/google/uuid"
)

type (
	// Importer persists a normalized batch atomically.
	Importer interface {
		ImportTransactions(ctx context.Context, records []core.Record) (int, error)
	}

	// EventPublisher announces completed imports. Optional.
	EventPublisher interface {
		PublishImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error
	}
)

// ImportReport summarizes one import run.
type ImportReport struct {
	BatchID     string
	Source      string
	RowsRead    int
	Normalized  int
	Skipped     int
	Inserted    int
	DryRun      bool
	Diagnostics []*core.RowError
	Duration    time.Duration
}

// ImportService orchestrates source, normalizer, importer and event publishing.
type ImportService struct {
	normalizer *ingest.Normalizer
	importer   Importer
	publisher  EventPublisher
	logger     *log.Logger
	events     *log.StructuredLogger
	newID      func() string
	now        func() time.Time
}

// NewImportService wires the pipeline. publisher may be nil.
func NewImportService(normalizer *ingest.Normalizer, importer Importer, publisher EventPublisher, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.Default(log.ComponentImport)
	}
	return &ImportService{
		normalizer: normalizer,
		importer:   importer,
		publisher:  publisher,
		logger:     logger.WithComponent(log.ComponentImport),
		events:     log.NewStructuredLogger(logger),
		newID:      func() string { return uuid.NewString() },
		now:        time.Now,
	}
}

// Import reads src, normalizes its rows and inserts them as one batch.
// With dryRun nothing is written and no event is published.
// Row problems end up in the report; source and storage failures are returned.
func (s *ImportService) Import(ctx context.Context, src sheets.RowSource, dryRun bool) (ImportReport, error) {
	start := s.now()
	report := ImportReport{BatchID: s.newID(), Source: src.Name(), DryRun: dryRun}

	res, err := s.normalizer.NormalizeSource(ctx, src)
	if err != nil {
		return report, fmt.Errorf("normalize: %w", err)
	}
	report.RowsRead = res.RowsRead
	report.Normalized = len(res.Records)
	report.Skipped = res.Skipped()
	report.Diagnostics = res.Diagnostics

	if !dryRun {
		n, err := s.importer.ImportTransactions(ctx, res.Records)
		if err != nil {
			return report, err
		}
		report.Inserted = n
	}
	report.Duration = s.now().Sub(start)

	s.events.LogImportCompleted(ctx, report.BatchID, report.Source,
		report.RowsRead, report.Normalized, report.Inserted, dryRun, report.Duration)

	if !dryRun && report.Inserted > 0 {
		s.publish(ctx, report)
	}
	return report, nil
}

// publish never fails the import; the ledger is already committed.
func (s *ImportService) publish(ctx context.Context, report ImportReport) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping import event")
		return
	}
	msg := amqp.NewImportCompletedMessage(report.BatchID, report.Source, report.RowsRead, report.Inserted, report.Skipped)
	if err := s.publisher.PublishImportCompleted(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish import event",
			log.FieldBatchID, report.BatchID,
			log.FieldError, err)
	}
}

// IsInputError reports whether err was caused by bad input rather than a broken store.
func IsInputError(err error) bool {
	return errors.Is(err, core.ErrSourceNotFound) ||
		errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrInvalidFlow) ||
		errors.Is(err, core.ErrInvalidGoal) ||
		errors.Is(err, core.ErrGoalNotFound) ||
		errors.Is(err, core.ErrUnknownTable)
}

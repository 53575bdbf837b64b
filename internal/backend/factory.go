package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/csvfile"
	gsheet "fintrack/internal/sheets/google"

	goption "google.golang.org/api/option"
)

type DefaultFactory struct {
	logger *log.Logger
	// sheetsOptions replace service account credentials, e.g. to target a test server.
	sheetsOptions []goption.ClientOption
}

func NewFactory(logger *log.Logger, sheetsOptions ...goption.ClientOption) *DefaultFactory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend), sheetsOptions: sheetsOptions}
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (sheets.RowSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsSource:
		src, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.SpreadsheetID,
			Range:           config.SheetRange,
			CredentialsJSON: config.CredentialsJSON,
			CredentialsFile: config.CredentialsFile,
		}, f.sheetsOptions...)
		if err != nil {
			return nil, fmt.Errorf("google sheets source: %w", err)
		}
		f.logger.DebugContext(ctx, "Using Google Sheets source", log.FieldSource, src.Name())
		return src, nil
	default:
		f.logger.DebugContext(ctx, "Using CSV source", log.FieldSource, config.CSVPath)
		return csvfile.New(config.CSVPath, config.Delimiter), nil
	}
}

// CreatePublisher connects to AMQP when configured. A broker that cannot be
// reached is logged and the import continues without events.
func (f *DefaultFactory) CreatePublisher(config Config) (services.EventPublisher, CleanupFunc) {
	noop := func() error { return nil }
	if config.AMQPURL == "" {
		return nil, noop
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to connect to AMQP, continuing without import events", log.FieldError, err.Error())
		return nil, noop
	}
	f.logger.Info("AMQP publisher ready", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
	return client, client.Close
}

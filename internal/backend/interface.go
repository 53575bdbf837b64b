package backend

import (
	"context"

	"fintrack/internal/services"
	"fintrack/internal/sheets"
)

// SourceType names where import rows come from.
type SourceType string

const (
	CSVSource    SourceType = "csv"
	SheetsSource SourceType = "sheets"
)

func (t SourceType) IsValid() bool {
	return t == CSVSource || t == SheetsSource
}

// CleanupFunc releases resources acquired by the factory.
type CleanupFunc func() error

// Factory builds the pluggable edges of an import: where rows come from and who hears about it.
type Factory interface {
	CreateSource(ctx context.Context, config Config) (sheets.RowSource, error)
	CreatePublisher(config Config) (services.EventPublisher, CleanupFunc)
}

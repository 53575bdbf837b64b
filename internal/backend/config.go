package backend

import (
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/config"
)

// Config holds what is needed to build a row source and an event publisher.
type Config struct {
	Type SourceType

	// CSV
	CSVPath   string
	Delimiter rune

	// Google Sheets
	SpreadsheetID   string
	SheetRange      string
	CredentialsJSON string
	CredentialsFile string

	// AMQP, publishing is skipped when URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig derives a backend config. A non-empty sourceType or path
// overrides the configured source, as the CLI flags and argument do.
func FromAppConfig(appConfig *config.Config, sourceType, path string) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := SourceType(strings.ToLower(strings.TrimSpace(sourceType)))
	if t == "" {
		t = SourceType(appConfig.SourceType)
	}
	csvPath := strings.TrimSpace(path)
	if csvPath == "" {
		csvPath = appConfig.CSVFilePath
	}

	c := Config{
		Type:            t,
		CSVPath:         csvPath,
		Delimiter:       appConfig.Ingest.Delimiter,
		SpreadsheetID:   appConfig.GoogleSpreadsheetID,
		SheetRange:      appConfig.GoogleSheetRange,
		CredentialsJSON: appConfig.GoogleServiceAccountJSON,
		CredentialsFile: appConfig.GoogleServiceAccountFile,
		AMQPURL:         appConfig.AMQPURL,
		AMQPExchange:    appConfig.AMQPExchange,
		AMQPQueue:       appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Type {
	case CSVSource:
		if c.CSVPath == "" {
			return errors.New("a CSV file path is required for the csv source")
		}
	case SheetsSource:
		if c.SpreadsheetID == "" {
			return errors.New("GOOGLE_SPREADSHEET_ID is required for the sheets source")
		}
	default:
		return fmt.Errorf("invalid source type %q: must be %s or %s", c.Type, CSVSource, SheetsSource)
	}
	return nil
}

package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.RowSource = (*Source)(nil)

// Config selects the sheet range to read and the service account used to read it.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsJSON string
	CredentialsFile string
}

// Source reads transaction rows from a range of a Google Sheet.
type Source struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
}

// New creates a Sheets-backed source. Extra options are appended to the
// credential options and are mainly useful to point the client at a test server.
func New(ctx context.Context, cfg Config, extra ...goption.ClientOption) (*Source, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = "A:E"
	}

	opts := extra
	if len(extra) == 0 {
		credOpts, err := credentialOptions(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(credOpts, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets source ready", "spreadsheet_id", id, "range", rng)
	return &Source{svc: svc, spreadsheetID: id, rng: rng}, nil
}

func credentialOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	return []goption.ClientOption{goption.WithCredentialsJSON(credentialsJSON)}, nil
}

func (s *Source) Name() string {
	return fmt.Sprintf("sheets:%s!%s", s.spreadsheetID, s.rng)
}

// Rows fetches the configured range. Row i of the response is line i+1.
func (s *Source) Rows(ctx context.Context) ([]ports.Row, error) {
	if s.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrSourceNotFound, s.Name(), err)
		}
		return nil, fmt.Errorf("read %s: %w", s.rng, err)
	}

	slog.DebugContext(ctx, "Fetched sheet range", "range", resp.Range, "rows", len(resp.Values))
	return valuesToRows(resp.Values), nil
}

func valuesToRows(values [][]any) []ports.Row {
	rows := make([]ports.Row, 0, len(values))
	for i, v := range values {
		rows = append(rows, ports.Row{Line: i + 1, Cells: toStrings(v)})
	}
	return rows
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}

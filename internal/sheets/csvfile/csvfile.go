package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"unicode/utf8"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var _ ports.RowSource = (*Source)(nil)

// Source reads rows from a delimited text file.
type Source struct {
	path      string
	delimiter rune
}

// New returns a Source for path. A zero delimiter means comma.
func New(path string, delimiter rune) *Source {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Source{path: path, delimiter: delimiter}
}

func (s *Source) Name() string { return s.path }

// Rows reads the whole file. A missing file is core.ErrSourceNotFound.
// Malformed rows are returned with Err set so callers can skip them.
func (s *Source) Rows(ctx context.Context) ([]ports.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrSourceNotFound, s.path)
		}
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	slog.DebugContext(ctx, "Reading CSV source", "path", s.path)
	return ReadRows(ctx, f, s.delimiter)
}

// ReadRows decodes every record of r. Line numbers come from the reader so that
// quoted multi-line fields and skipped blank lines do not shift them.
func ReadRows(ctx context.Context, r io.Reader, delimiter rune) ([]ports.Row, error) {
	if !validDelim(delimiter) {
		return nil, fmt.Errorf("invalid csv delimiter %q", delimiter)
	}

	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	var rows []ports.Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rows = append(rows, ports.Row{Line: perr.StartLine, Cells: record, Err: perr})
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, ports.Row{Line: line, Cells: record})
	}
	return rows, nil
}

func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

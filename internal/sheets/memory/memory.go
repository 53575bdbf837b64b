package memory

import (
	"context"
	"sync"

	ports "fintrack/internal/sheets"
)

var _ ports.RowSource = (*Source)(nil)

// Source serves rows held in memory. It backs dry runs of pasted data and tests.
type Source struct {
	mu   sync.Mutex
	name string
	rows []ports.Row
	err  error
}

// New builds a source from raw records; record i gets line i+1.
func New(name string, records [][]string) *Source {
	rows := make([]ports.Row, 0, len(records))
	for i, rec := range records {
		rows = append(rows, ports.Row{Line: i + 1, Cells: append([]string(nil), rec...)})
	}
	return &Source{name: name, rows: rows}
}

// NewFailing returns a source whose Rows always fails with err.
func NewFailing(name string, err error) *Source {
	return &Source{name: name, err: err}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Rows(_ context.Context) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]ports.Row, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// Append adds a record after the existing ones.
func (s *Source) Append(record ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, ports.Row{Line: len(s.rows) + 1, Cells: record})
}

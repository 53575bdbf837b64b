package sheets

import "context"

type (
	// Row is one raw input row. Line is 1-based in the source; Err is set when the
	// row itself could not be decoded but the rest of the source is still readable.
	Row struct {
		Line  int
		Cells []string
		Err   error
	}

	// RowSource produces the raw rows of a spreadsheet export, once per call.
	// A source that cannot be read at all returns an error and no rows.
	RowSource interface {
		Name() string
		Rows(ctx context.Context) ([]Row, error)
	}
)

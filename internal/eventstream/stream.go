package eventstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrzor/bbgraph/internal/trace"
)

// ErrRaggedRow is returned for a row whose field count differs from the header.
var ErrRaggedRow = errors.New("field count does not match header")

// Handler consumes the rows of one table.
type Handler interface {
	// HandleHeader may rewrite the column names before rows are built.
	HandleHeader(header []string) ([]string, error)
	HandleRow(line int, row trace.Row) error
}

// Stream reads a table and dispatches each row to a handler.
type Stream struct {
	reader  *Reader
	handler Handler
}

// New creates a Stream over r using the tool's dialect.
func New(r io.Reader, handler Handler) *Stream {
	return &Stream{
		reader:  NewReader(r),
		handler: handler,
	}
}

// Run reads the header then every row until EOF, the first handler error,
// or context cancellation.
func (s *Stream) Run(ctx context.Context) error {
	header, _, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("missing header")
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	header, err = s.handler.HandleHeader(header)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, line, err := s.reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading row: %w", err)
		}
		if len(record) != len(header) {
			return fmt.Errorf("line %d: %w: got %d, want %d", line, ErrRaggedRow, len(record), len(header))
		}

		row := make(trace.Row, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		if err := s.handler.HandleRow(line, row); err != nil {
			return err
		}
	}
}

package eventstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Dialect defaults of the tracing tool.
const (
	DefaultComma = ','
	DefaultQuote = '|'
)

// ErrUnterminatedQuote is returned when the input ends inside a quoted field.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

// Reader splits a table into records.
type Reader struct {
	Comma rune
	Quote rune

	r    *bufio.Reader
	line int
}

// NewReader returns a Reader using the tool's dialect.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		Comma: DefaultComma,
		Quote: DefaultQuote,
		r:     bufio.NewReaderSize(r, 1<<20),
	}
}

// Read returns the next non-blank record and the line it starts on.
// It returns io.EOF when the input is exhausted.
func (r *Reader) Read() ([]string, int, error) {
	for {
		text, err := r.readLine()
		if err != nil {
			return nil, 0, err
		}
		if text == "" {
			continue
		}
		start := r.line
		record, err := r.parse(text)
		if err != nil {
			return nil, start, err
		}
		return record, start, nil
	}
}

func (r *Reader) readLine() (string, error) {
	text, err := r.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if text == "" {
			return "", io.EOF
		}
	}
	r.line++
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return text, nil
}

func (r *Reader) parse(text string) ([]string, error) {
	var (
		record  []string
		field   strings.Builder
		inQuote bool
		atStart = true
	)

	for {
		for i := 0; i < len(text); {
			c, size := utf8.DecodeRuneInString(text[i:])
			// Invalid UTF-8 decodes to RuneError with size 1; raw keeps the
			// original byte.
			raw := text[i : i+size]
			i += size
			switch {
			case inQuote && c == r.Quote:
				if next, n := utf8.DecodeRuneInString(text[i:]); n > 0 && next == r.Quote {
					field.WriteString(raw)
					i += n
				} else {
					inQuote = false
				}
			case inQuote:
				field.WriteString(raw)
			case c == r.Comma:
				record = append(record, field.String())
				field.Reset()
				atStart = true
			case c == r.Quote && atStart:
				inQuote = true
				atStart = false
			default:
				field.WriteString(raw)
				atStart = false
			}
		}

		if !inQuote {
			return append(record, field.String()), nil
		}

		next, err := r.readLine()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("line %d: %w", r.line, ErrUnterminatedQuote)
		}
		if err != nil {
			return nil, err
		}
		field.WriteByte('\n')
		text = next
	}
}

package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedField is matched by every FieldError.
var ErrMalformedField = errors.New("malformed integer field")

// FieldError reports a typed column whose value is not an integer.
type FieldError struct {
	Field string
	Value string
	// Line is the 1-based line in the source table, 0 when unknown.
	Line int
	Err  error
}

func (e *FieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() []error {
	return []error{ErrMalformedField, e.Err}
}

// ParseEvent converts a trace table row into an Event.
// line is only used for error reporting.
func ParseEvent(row Row, line int) (Event, error) {
	var ev Event
	var err error

	if ev.OSTid, err = parseField(row, FieldOSTid, line); err != nil {
		return Event{}, err
	}
	if ev.PinTid, err = parseField(row, FieldPinTid, line); err != nil {
		return Event{}, err
	}
	if ev.BBIdx, err = parseField(row, FieldBBIdx, line); err != nil {
		return Event{}, err
	}

	if extra := len(row) - 3; extra > 0 {
		ev.Attrs = make(map[string]string, extra)
		for k, v := range row {
			switch k {
			case FieldOSTid, FieldPinTid, FieldBBIdx:
			default:
				ev.Attrs[k] = v
			}
		}
	}
	return ev, nil
}

// ParseBasicBlock converts a node table row, whose first column has already
// been renamed to "id", into a BasicBlock.
func ParseBasicBlock(row Row) (BasicBlock, error) {
	id, ok := row[FieldID]
	if !ok {
		return BasicBlock{}, fmt.Errorf("missing %q column", FieldID)
	}
	bb := BasicBlock{ID: id, Attrs: make(map[string]string, len(row)-1)}
	for k, v := range row {
		if k != FieldID {
			bb.Attrs[k] = v
		}
	}
	return bb, nil
}

func parseField(row Row, field string, line int) (int64, error) {
	raw, ok := row[field]
	if !ok {
		return 0, &FieldError{Field: field, Line: line, Err: errors.New("missing column")}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &FieldError{Field: field, Value: raw, Line: line, Err: err}
	}
	return v, nil
}

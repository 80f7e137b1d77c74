package evals

import (
	"encoding/json"
	"errors"

	"github.com/egaebel-mixpanel/evals/internal/logx"
)

// Record is one decoded JSON value, tagged with the file it came from and
// its 1-based line number. Records are transient: consumers are expected
// to use or copy the value immediately.
type Record struct {
	Path  string
	Line  int
	Value any
}

// DecodeRecord parses one line of a record file as a single JSON value.
//
// On parse failure it logs the position and returns a *DecodeError naming
// the path, line, column and the parser's message. This is the only point
// where per-record errors carry positional context; callers rely on it to
// locate the first bad line of a malformed corpus.
func DecodeRecord(line []byte, path string, lineNo int) (any, error) {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		derr := &DecodeError{
			Path:   path,
			Line:   lineNo,
			Column: errColumn(err),
			Msg:    err.Error(),
			Err:    err,
		}
		logx.Logger().Error().
			Str("path", path).
			Int("line", lineNo).
			Int("column", derr.Column).
			Msg(derr.Error())
		return nil, derr
	}
	return v, nil
}

// errColumn extracts a 1-based column from the JSON parser's byte offset.
func errColumn(err error) int {
	var offset int64
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		offset = syn.Offset
	case errors.As(err, &typ):
		offset = typ.Offset
	}
	if offset < 1 {
		return 1
	}
	return int(offset)
}

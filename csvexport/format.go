package csvexport

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Formatting defaults.
const (
	DefaultPlaceholder = "N/A"
	TimeFormat         = "2006-01-02T15:04:05.000Z07:00"

	bom = "\ufeff"
)

// FormatOptions controls how cells are rendered.
type FormatOptions struct {
	// Placeholder is written for nil cells, defaults to "N/A".
	Placeholder string
	// StripMarkup removes HTML markup from string cells.
	StripMarkup bool
}

// Formatter writes records in the spreadsheet CSV dialect: comma separated,
// CRLF terminated and with every field quoted.
type Formatter struct {
	placeholder string
	policy      *bluemonday.Policy
}

func NewFormatter(opts FormatOptions) *Formatter {
	f := Formatter{
		placeholder: opts.Placeholder,
	}

	if f.placeholder == "" {
		f.placeholder = DefaultPlaceholder
	}

	if opts.StripMarkup {
		f.policy = bluemonday.StrictPolicy()
	}

	return &f
}

// WriteHeader writes the header row.
func (f *Formatter) WriteHeader(buf *bytes.Buffer, columns []string) {
	for i, c := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}

		writeQuoted(buf, c)
	}

	buf.WriteString("\r\n")
}

// WriteRecord writes a row of cells.
func (f *Formatter) WriteRecord(buf *bytes.Buffer, cells []any) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}

		writeQuoted(buf, f.Cell(c))
	}

	buf.WriteString("\r\n")
}

// Cell renders a single cell value.
func (f *Formatter) Cell(v any) string {
	switch val := v.(type) {
	case nil:
		return f.placeholder
	case string:
		return f.text(val)
	case *string:
		if val == nil {
			return f.placeholder
		}

		return f.text(*val)
	case time.Time:
		return val.UTC().Format(TimeFormat)
	case *time.Time:
		if val == nil {
			return f.placeholder
		}

		return val.UTC().Format(TimeFormat)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case *int64:
		if val == nil {
			return f.placeholder
		}

		return strconv.FormatInt(*val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	}

	rv := reflect.ValueOf(v)

	// Render what pointers point to, a typed nil is a missing value.
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return f.placeholder
		}

		if s, ok := v.(fmt.Stringer); ok {
			return f.text(s.String())
		}

		return f.Cell(rv.Elem().Interface())
	}

	if s, ok := v.(fmt.Stringer); ok {
		return f.text(s.String())
	}

	return f.text(fmt.Sprint(v))
}

func (f *Formatter) text(s string) string {
	if f.policy == nil {
		return s
	}

	// The strict policy escapes the remaining text for HTML output, we
	// want it back as plain text.
	return html.UnescapeString(f.policy.Sanitize(s))
}

func writeQuoted(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	buf.WriteString(strings.ReplaceAll(s, `"`, `""`))
	buf.WriteByte('"')
}

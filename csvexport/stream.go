package csvexport

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// EmitFunc formats a batch of rows and writes them to the response as a
// single chunk. It blocks until the chunk has been written, and must not be
// called concurrently.
type EmitFunc func(ctx context.Context, rows [][]any) error

// ProduceFunc produces the rows of an export by calling emit once per batch.
type ProduceFunc func(ctx context.Context, emit EmitFunc) error

// StreamCSV streams a CSV file download to the sink. The BOM and the header
// row are written as the first chunk so that an empty export still yields a
// valid file.
func StreamCSV(
	ctx context.Context,
	sink ResponseSink,
	fileName string,
	header []string,
	produce ProduceFunc,
	opts FormatOptions,
) error {
	sink.SetHeader("Content-Type", "text/plain")
	sink.SetHeader("Content-Disposition", ContentDisposition(fileName))
	sink.BeginChunked()

	format := NewFormatter(opts)

	var buf bytes.Buffer

	buf.WriteString(bom)
	format.WriteHeader(&buf, header)

	err := sink.WriteChunk(ctx, buf.Bytes())
	if err != nil {
		return &TransportError{Err: err}
	}

	buf.Reset()

	emit := func(ctx context.Context, rows [][]any) error {
		if len(rows) == 0 {
			return nil
		}

		for _, row := range rows {
			format.WriteRecord(&buf, row)
		}

		err := sink.WriteChunk(ctx, buf.Bytes())

		buf.Reset()

		if err != nil {
			return &TransportError{Err: err}
		}

		return nil
	}

	err = produce(ctx, emit)
	if err != nil {
		return fmt.Errorf("produce rows: %w", err)
	}

	return nil
}

// ContentDisposition creates an attachment disposition with both a plain and
// an UTF-8 encoded filename.
func ContentDisposition(fileName string) string {
	return fmt.Sprintf("attachment; filename=%s.csv; filename*=utf-8''%s.csv",
		plainFileName(fileName), encodeExtValue(fileName))
}

// plainFileName replaces characters that would break the header value. The
// plain variant is ASCII only, filename* carries the UTF-8 name.
func plainFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r >= 0x7f:
			return '_'
		case r == '"', r == ';', r == '\\', r == ',':
			return '_'
		}

		return r
	}, name)
}

const upperhex = "0123456789ABCDEF"

// encodeExtValue percent-encodes a value for use in an extended header
// parameter, leaving only the RFC 5987 attr-chars as-is.
func encodeExtValue(s string) string {
	var b strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]

		if isAttrChar(c) {
			b.WriteByte(c)

			continue
		}

		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}

	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}

	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

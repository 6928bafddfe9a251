package csvexport

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ResponseSink is the transport that a CSV export is streamed to.
type ResponseSink interface {
	SetHeader(name string, value string)
	// BeginChunked sends the response headers and starts a chunked body.
	BeginChunked()
	// WriteChunk writes a chunk to the body. It must not return until the
	// chunk has been handed off to the transport.
	WriteChunk(ctx context.Context, chunk []byte) error
}

// TransportError is returned when a chunk couldn't be written to the sink,
// typically because the client has gone away.
type TransportError struct {
	Err error
}

func (te *TransportError) Error() string {
	return fmt.Sprintf("write chunk: %v", te.Err)
}

func (te *TransportError) Unwrap() error {
	return te.Err
}

var _ ResponseSink = &HTTPSink{}

// HTTPSink streams a response to a HTTP client, flushing after every chunk.
type HTTPSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	return &HTTPSink{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

func (s *HTTPSink) SetHeader(name string, value string) {
	s.w.Header().Set(name, value)
}

// BeginChunked writes the status line and headers. As no content length is
// set the body will use chunked transfer encoding.
func (s *HTTPSink) BeginChunked() {
	s.w.Header().Del("Content-Length")
	s.w.WriteHeader(http.StatusOK)
}

func (s *HTTPSink) WriteChunk(ctx context.Context, chunk []byte) error {
	// The request context is cancelled when the client disconnects.
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("response aborted: %w", err)
	}

	_, err = s.w.Write(chunk)
	if err != nil {
		return fmt.Errorf("write to client: %w", err)
	}

	err = s.rc.Flush()
	if err != nil {
		return fmt.Errorf("flush to client: %w", err)
	}

	return nil
}

var _ ResponseSink = &WriterSink{}

// WriterSink writes an export to an io.Writer, headers are discarded.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) SetHeader(_ string, _ string) {}

func (s *WriterSink) BeginChunked() {}

func (s *WriterSink) WriteChunk(ctx context.Context, chunk []byte) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("export aborted: %w", err)
	}

	_, err = s.w.Write(chunk)
	if err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}

	if f, ok := s.w.(interface{ Flush() error }); ok {
		err := f.Flush()
		if err != nil {
			return fmt.Errorf("flush chunk: %w", err)
		}
	}

	return nil
}

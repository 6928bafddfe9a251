package export

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ttab/elephant-export/csvexport"
	"github.com/ttab/elephant-export/scroll"
	"github.com/ttab/elephantine/test"
)

func TestFailureLabel(t *testing.T) {
	cases := map[string]struct {
		Err  error
		Want string
	}{
		"client gone between pages": {
			Err:  fmt.Errorf("scroll people: %w", fmt.Errorf("scroll cancelled: %w", context.Canceled)),
			Want: "transport_error",
		},
		"chunk write failed": {
			Err:  fmt.Errorf("stream: %w", &csvexport.TransportError{Err: errors.New("broken pipe")}),
			Want: "transport_error",
		},
		"tie group too large": {
			Err:  fmt.Errorf("advance: %w", scroll.ErrOrderKeyCardinality),
			Want: "configuration_error",
		},
		"query failed": {
			Err:  errors.New("connection refused"),
			Want: "source_error",
		},
		"query timed out": {
			Err:  context.DeadlineExceeded,
			Want: "source_error",
		},
	}

	for name, c := range cases {
		test.Equal(t, c.Want, failureLabel(c.Err), name)
	}
}

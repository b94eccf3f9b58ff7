package extract

import (
	"context"
	"errors"
)

// ErrUnavailable marks failures of the extraction service as a whole
// (unreachable or overloaded) as opposed to a failure on one document.
var ErrUnavailable = errors.New("extract: service unavailable")

// Extractor turns raw file bytes into searchable plain text.
//
// Unparseable or unsupported content is not an error: implementations return
// empty or partial text. An error is either about this one document (a timeout,
// a dropped connection) or wraps ErrUnavailable when the service cannot serve anyone.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

package llm

import (
	"errors"
	"fmt"
)

// Extraction failure classes. All are recoverable at the pipeline level:
// the page is skipped and processing continues.
var (
	ErrTransport         = errors.New("llm transport error")
	ErrTimeout           = errors.New("llm timeout")
	ErrMalformedResponse = errors.New("malformed llm response")
)

// MalformedResponseError carries the raw model text for diagnostics.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed llm response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

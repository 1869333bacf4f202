package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type FailureKind int

const (
	TransportFailure FailureKind = iota
	ServiceFailure
	EmptyResponseFailure
)

func (k FailureKind) String() string {
	switch k {
	case TransportFailure:
		return "transport"
	case ServiceFailure:
		return "service"
	case EmptyResponseFailure:
		return "empty response"
	default:
		return "unknown"
	}
}

// ErrEmptyResponse is returned by backends when the service answered with no text.
var ErrEmptyResponse = errors.New("empty response")

// Failure is returned by Client once every attempt has failed.
type Failure struct {
	Kind     FailureKind
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s) (%s): %v", f.Attempts, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// classify maps a backend error onto the failure taxonomy.
func classify(err error) FailureKind {
	if errors.Is(err, ErrEmptyResponse) {
		return EmptyResponseFailure
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TransportFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return TransportFailure
	}
	return ServiceFailure
}

package core

import (
	"context"

	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

// RosterSource loads author rows from the portal.
type RosterSource interface {
	FetchRoster(ctx context.Context, filter string) ([]schema.NameRecord, error)
}

// Corrector writes a corrected name to an author profile.
//
// Writes are best-effort: a nil error means the portal accepted the request,
// not that the stored name was verified afterwards.
type Corrector interface {
	ApplyCorrection(ctx context.Context, link, newName string) error
}

// CorrectorFunc adapts a function to the Corrector interface.
type CorrectorFunc func(ctx context.Context, link, newName string) error

func (f CorrectorFunc) ApplyCorrection(ctx context.Context, link, newName string) error {
	return f(ctx, link, newName)
}

// TransientError marks an error as retryable by worker implementations.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LimitedTransientError is retryable, but only ExtraRetries more times regardless
// of the worker-wide retry budget.
type LimitedTransientError struct {
	Err          error
	ExtraRetries int
}

func (e *LimitedTransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *LimitedTransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *LimitedTransientError) MaxExtraRetries() int {
	if e == nil {
		return 0
	}
	return e.ExtraRetries
}

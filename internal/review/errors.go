package review

import (
	"errors"
	"fmt"
)

// PassError reports a single pass's finding generation failure. It is
// non-fatal: the pass contributes zero findings and the run continues.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("pass %s: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// EmitError reports a single finding that failed to post. Non-fatal;
// other findings are still posted.
type EmitError struct {
	Finding Finding
	Err     error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("posting %s at %s:%d: %v", e.Finding.GuidelineID, e.Finding.Path, e.Finding.Line, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// failure converts the error into its report entry.
func (e *EmitError) failure() EmitFailure {
	return EmitFailure{Finding: e.Finding, Error: e.Err.Error()}
}

// TransportError reports a collaborator transport failure. Fatal when
// it occurs fetching the diff or comments at Init, and fatal when the
// comment sink reports it during Emit.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

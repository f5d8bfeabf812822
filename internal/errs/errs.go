package errs

import "errors"

// Run-fatal error kinds. Components wrap one of these with operation context;
// callers test with errors.Is.
var (
	ErrDataUnavailable = errors.New("data unavailable")
	ErrParse           = errors.New("parse error")
	ErrIO              = errors.New("io error")
	ErrExternalProcess = errors.New("external process failure")
	ErrDelivery        = errors.New("delivery error")
)

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrDataUnavailable):
		return 3
	case errors.Is(err, ErrParse):
		return 4
	case errors.Is(err, ErrIO):
		return 5
	case errors.Is(err, ErrExternalProcess):
		return 6
	case errors.Is(err, ErrDelivery):
		return 7
	default:
		return 1
	}
}

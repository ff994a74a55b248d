package exitcodes

import "errors"

// ErrorWithExitCode couples an error with the process exit code it should produce once it reaches the top level of
// the CLI.
type ErrorWithExitCode struct {
	err      error
	exitCode int
}

// NewErrorWithExitCode wraps the provided inner error with the exit code to surface for it.
func NewErrorWithExitCode(err error, exitCode int) *ErrorWithExitCode {
	return &ErrorWithExitCode{
		err:      err,
		exitCode: exitCode,
	}
}

// Error implements the error interface. The message is that of the inner error, or empty when the wrapper only
// carries an exit code.
func (e *ErrorWithExitCode) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

// GetInnerErrorAndExitCode resolves the exit code the application should terminate with for the provided error:
// ExitCodeSuccess for nil, the wrapped code for an ErrorWithExitCode anywhere in the chain, and
// ExitCodeGeneralError otherwise. Returns the innermost error alongside the resolved code.
func GetInnerErrorAndExitCode(err error) (error, int) {
	if err == nil {
		return nil, ExitCodeSuccess
	}
	var coded *ErrorWithExitCode
	if errors.As(err, &coded) {
		return coded.err, coded.exitCode
	}
	return err, ExitCodeGeneralError
}

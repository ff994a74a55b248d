package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeHandledError indicates an error occurred which was already reported through the logger, so the
	// top-level should exit without printing it again. Note that an error with code ExitCodeGeneralError and
	// ExitCodeHandledError are mutually exclusive errors.
	ExitCodeHandledError = 6

	// ExitCodeInvariantFailed indicates a campaign or replay found a broken invariant.
	ExitCodeInvariantFailed = 7
)

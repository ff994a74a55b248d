package logging

// LogBuffer is a helper object used to buffer log messages. A log buffer is effectively a list of arguments of any
// type. It is especially useful when logging complex objects (e.g. a decoded counterexample sequence) that carry
// their own coloring and formatting. The LogBuffer can be handed to a Logger which formats it for console or file.
type LogBuffer struct {
	// args describes the list of arguments that eventually need to be concatenated together in the Logger
	args []any
}

// NewLogBuffer creates a new LogBuffer object
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{
		args: make([]any, 0),
	}
}

// Append appends a variadic set of arguments to the list of arguments
func (l *LogBuffer) Append(newArgs ...any) {
	l.args = append(l.args, newArgs...)
}

// Elements returns the list of arguments stored in this LogBuffer
func (l *LogBuffer) Elements() []any {
	return l.args
}

// String provides the non-colorized string representation of the LogBuffer
func (l LogBuffer) String() string {
	_, msg, _, _ := buildMsgs(l.args...)
	return msg
}

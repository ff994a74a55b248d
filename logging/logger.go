package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crytic/gorgon/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when a campaign is created. Each
// package should create its own sub-logger so that log output can be filtered by origin.
var GlobalLogger *Logger

// Logger describes a custom logging object that can log events to any arbitrary channel and handles specialized
// unstructured output to console as well.
type Logger struct {
	// level describes the log level events must meet to be emitted.
	level zerolog.Level

	// multiLogger describes a logger used to output structured logs to any arbitrary channel(s).
	multiLogger zerolog.Logger

	// consoleLogger describes a logger used to output unstructured, colorized output to console.
	consoleLogger zerolog.Logger

	// writers describes the list of io.Writer objects where structured log output will go.
	writers []io.Writer
}

// LogFormat describes what format to log in.
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format.
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format.
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data.
type StructuredLogInfo map[string]any

// NewLogger creates a new Logger with a specific log level. The Logger can output to console, if enabled, and to any
// number of arbitrary io.Writer channels.
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	// Both base loggers start disabled so that we never dereference a nil logger downstream.
	baseMultiLogger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	baseConsoleLogger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	if len(writers) > 0 {
		baseMultiLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	}

	if consoleEnabled {
		consoleWriter := setupDefaultFormatting(zerolog.ConsoleWriter{Out: os.Stdout}, level)
		baseConsoleLogger = zerolog.New(consoleWriter).Level(level)
	}

	return &Logger{
		level:         level,
		multiLogger:   baseMultiLogger,
		consoleLogger: baseConsoleLogger,
		writers:       writers,
	}
}

// NewSubLogger creates a new Logger with unique context in the form of a key-value pair. The expected use is for each
// package or campaign to hold its own sub-logger so that log output is grep-able by some key.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subMultiLogger := l.multiLogger.With().Str(key, value).Logger()
	subConsoleLogger := l.consoleLogger.With().Str(key, value).Logger()
	return &Logger{
		level:         l.level,
		multiLogger:   subMultiLogger,
		consoleLogger: subConsoleLogger,
		writers:       l.writers,
	}
}

// AddWriter adds a writer to the list of channels where log output is sent.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat) {
	for _, w := range l.writers {
		if writer == w {
			return
		}
	}

	// For unstructured output, wrap the writer in a console writer with no ANSI coloring.
	if format == UNSTRUCTURED {
		writer = zerolog.ConsoleWriter{Out: writer, NoColor: true}
	}

	l.writers = append(l.writers, writer)
	l.multiLogger = zerolog.New(zerolog.MultiLevelWriter(l.writers...)).Level(l.level).With().Timestamp().Logger()
}

// Level returns the log level of the Logger.
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel updates the log level of the Logger.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.multiLogger = l.multiLogger.Level(level)
	l.consoleLogger = l.consoleLogger.Level(level)
}

// Trace logs a trace event.
func (l *Logger) Trace(args ...any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)
	l.emit(l.consoleLogger.Trace(), l.multiLogger.Trace(), err, info, consoleMsg, multiMsg)
}

// Debug logs a debug event.
func (l *Logger) Debug(args ...any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)
	l.emit(l.consoleLogger.Debug(), l.multiLogger.Debug(), err, info, consoleMsg, multiMsg)
}

// Info logs an info event.
func (l *Logger) Info(args ...any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)
	l.emit(l.consoleLogger.Info(), l.multiLogger.Info(), err, info, consoleMsg, multiMsg)
}

// Warn logs a warning event.
func (l *Logger) Warn(args ...any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)
	l.emit(l.consoleLogger.Warn(), l.multiLogger.Warn(), err, info, consoleMsg, multiMsg)
}

// Error logs an error event.
func (l *Logger) Error(args ...any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)
	l.emit(l.consoleLogger.Error(), l.multiLogger.Error(), err, info, consoleMsg, multiMsg)
}

// Panic logs a panic event and panics.
func (l *Logger) Panic(args ...any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)
	l.emit(l.consoleLogger.Panic(), l.multiLogger.Panic(), err, info, consoleMsg, multiMsg)
}

// emit chains the optional error and structured info onto both events and sends them to their channels. A stack trace
// is attached when the logger runs at debug verbosity or lower.
func (l *Logger) emit(consoleLog *zerolog.Event, multiLog *zerolog.Event, err error, info StructuredLogInfo, consoleMsg string, multiMsg string) {
	consoleLog.Err(err)
	multiLog.Err(err)
	if l.level <= zerolog.DebugLevel {
		consoleLog.Stack()
		multiLog.Stack()
	}

	if info != nil {
		consoleLog.Any("info", info)
		multiLog.Any("info", info)
	}

	// The multi logger message is deferred so that all channels receive the log even when logging a panic.
	defer multiLog.Msg(multiMsg)
	consoleLog.Msg(consoleMsg)
}

// buildMsgs takes a variadic list of arguments of any type and returns two strings and, optionally, an error and a
// StructuredLogInfo object. The first string is a colorized string for console logging while the second is a
// non-colorized one for file/structured logging.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	consoleOutput := make([]string, 0)
	fileOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// A color function switches the current color context.
			colorCtx = t
		case *LogBuffer:
			// A log buffer is expanded in place, inheriting the current color context.
			consoleBuf, fileBuf, bufErr, bufInfo := buildMsgs(t.Elements()...)
			consoleOutput = append(consoleOutput, consoleBuf)
			fileOutput = append(fileOutput, fileBuf)
			if bufErr != nil {
				err = bufErr
			}
			if bufInfo != nil {
				info = bufInfo
			}
		case StructuredLogInfo:
			// Only one structured log info can be provided per log message.
			info = t
		case error:
			// Only one error can be provided per log message.
			err = t
		default:
			consoleOutput = append(consoleOutput, colorCtx(t))
			fileOutput = append(fileOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(fileOutput, ""), err, info
}

// setupDefaultFormatting updates the console writer's formatting to the standard campaign output format.
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Console output carries no timestamp.
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	writer.FormatLevel = func(i any) string {
		parsedLevel, err := zerolog.ParseLevel(i.(string))
		if err != nil {
			panic(fmt.Sprintf("unable to parse the log level: %v", err))
		}

		switch parsedLevel {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		default:
			return colors.RedBold(parsedLevel.String())
		}
	}

	writer.FormatMessage = func(i any) string {
		if i == nil {
			return ""
		}
		return fmt.Sprintf("%s", i)
	}

	return writer
}

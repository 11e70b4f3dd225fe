package stalier

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

// Logger receives warnings about failures in the cache layer.
// These failures never reach the caller, so the logger is the only place they show up.
type Logger interface {
	Warn(message string)
}

// LoggerFunc adapts a plain function to the Logger interface.
type LoggerFunc func(message string)

func (f LoggerFunc) Warn(message string) {
	f(message)
}

type zerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger returns a Logger writing warnings to the given zerolog logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return zerologLogger{log: logger}
}

func (z zerologLogger) Warn(message string) {
	z.log.Warn().Msg(message)
}

type zapLogger struct {
	log *zap.Logger
}

// NewZapLogger returns a Logger writing warnings to the given zap logger.
func NewZapLogger(logger *zap.Logger) Logger {
	return zapLogger{log: logger}
}

func (z zapLogger) Warn(message string) {
	z.log.Warn(message)
}

// used if no logger is given in the options
var consoleLogger = NewZerologLogger(
	zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger())

// warn logs a cache layer error for the given key.
func warn(logger Logger, err error, key string) {
	if err == nil {
		logger.Warn(fmt.Sprintf("Error updating cache for key %s", key))
		return
	}
	logger.Warn(fmt.Sprintf("Error updating cache for key %s: %s", key, err.Error()))
}

// warnRecovered logs a value recovered from a panic.
// Only errors have their message included.
func warnRecovered(logger Logger, recovered any, key string) {
	err, _ := recovered.(error)
	warn(logger, err, key)
}

package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the component-tagged structured logger used across the pipeline.
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// ParseLevel maps the LOG_LEVEL vocabulary onto zerolog levels.
// Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &ZerologAdapter{logger: zerolog.Nop()}
}

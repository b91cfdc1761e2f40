package infra

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// LogFormat values.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// SetupLogging installs the process-wide logger. Text output goes through
// the console writer, anything else is written as JSON lines. A nil w
// writes to stderr.
func SetupLogging(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	var (
		writer     log.Writer
		timeFormat string
	)
	if strings.EqualFold(format, LogFormatJSON) {
		writer = &log.IOWriter{Writer: w}
	} else {
		writer = &log.ConsoleWriter{
			ColorOutput:    w == os.Stderr || w == os.Stdout,
			QuoteString:    true,
			EndWithMessage: true,
			Writer:         w,
		}
		timeFormat = "15:04:05"
	}

	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: timeFormat,
		Writer:     writer,
	}
}

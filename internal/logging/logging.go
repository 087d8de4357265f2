// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options mirror the global CLI flags.
type Options struct {
	Verbose bool
	Quiet   bool
	JSON    bool
	Out     io.Writer // defaults to os.Stdout
}

// Writer returns the console or JSON writer selected by opts.
func Writer(opts Options) io.Writer {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.JSON {
		return out
	}

	console := zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	console.FormatLevel = func(i interface{}) string {
		if s, ok := i.(string); ok {
			return strings.ToUpper(s)
		}
		return ""
	}
	return console
}

// Level returns the minimum level selected by opts. Quiet wins over verbose.
func Level(opts Options) zerolog.Level {
	switch {
	case opts.Quiet:
		return zerolog.ErrorLevel
	case opts.Verbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup installs the global logger and level.
func Setup(opts Options) {
	log.Logger = zerolog.New(Writer(opts)).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(Level(opts))
}

// WithLogTool returns a logger that writes to the configured output and also
// forwards every record to the NAS system log tool at path.
func WithLogTool(opts Options, path string, executor CommandExecutor) zerolog.Logger {
	w := zerolog.MultiLevelWriter(Writer(opts), NewLogToolWriter(path, executor))
	return zerolog.New(w).With().Timestamp().Logger()
}

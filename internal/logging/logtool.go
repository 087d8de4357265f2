package logging

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

const (
	logToolPrefix  = "[NAS Boot Server] "
	logToolTimeout = 2 * time.Second
)

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its combined output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LogToolWriter forwards zerolog records to a QNAP-style log_tool binary.
// Errors from the tool are swallowed.
type LogToolWriter struct {
	path     string
	executor CommandExecutor
}

// NewLogToolWriter creates a sink invoking path. A nil executor uses os/exec.
func NewLogToolWriter(path string, executor CommandExecutor) *LogToolWriter {
	if executor == nil {
		executor = &DefaultExecutor{}
	}
	return &LogToolWriter{path: path, executor: executor}
}

// Write forwards a record with no level.
func (w *LogToolWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel forwards a record, mapping error and above to 2, warn to 1 and
// everything else to 0.
func (w *LogToolWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), logToolTimeout)
	defer cancel()

	_, _ = w.executor.Execute(ctx, w.path, "-a", logToolPrefix+recordText(p), "-t", levelCode(level))
	return len(p), nil
}

func levelCode(level zerolog.Level) string {
	switch {
	case level == zerolog.NoLevel || level < zerolog.WarnLevel:
		return "0"
	case level == zerolog.WarnLevel:
		return "1"
	default:
		return "2"
	}
}

// recordText extracts the message and error from a JSON record.
func recordText(p []byte) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return string(p)
	}

	msg, _ := fields[zerolog.MessageFieldName].(string)
	if errText, ok := fields[zerolog.ErrorFieldName].(string); ok && errText != "" {
		if msg == "" {
			return errText
		}
		return msg + ": " + errText
	}
	return msg
}

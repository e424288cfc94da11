// Package logging builds the hclog loggers used across factlint.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Options select the root logger's level and format.
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// New returns the root logger. Components take named sub-loggers from it
// with Named.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:        "factlint",
		Level:       Level(opts.Level),
		Output:      out,
		JSONFormat:  opts.JSON,
		DisableTime: !opts.JSON,
	})
}

// Level maps a configured level name to hclog's, defaulting to info.
func Level(name string) hclog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return hclog.Trace
	case "debug":
		return hclog.Debug
	case "warn", "warning":
		return hclog.Warn
	case "error":
		return hclog.Error
	case "off":
		return hclog.Off
	default:
		return hclog.Info
	}
}

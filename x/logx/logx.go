// Package logx builds the process-wide zerolog logger: human-readable
// console output plus a tee into the rotating diagnostic log, which receives
// plain "[DD.MM.YYYY HH:MM:SS] message" lines.
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const diagTimeFormat = "02.01.2006 15:04:05"

// New returns a logger at the given level ("trace".."error"; anything else
// falls back to info). diag may be nil to log to the console only.
func New(level string, diag io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	var out io.Writer = console
	if diag != nil {
		file := zerolog.ConsoleWriter{
			Out:        diag,
			NoColor:    true,
			TimeFormat: diagTimeFormat,
			FormatTimestamp: func(i interface{}) string {
				s, _ := i.(string)
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					return "[" + t.Format(diagTimeFormat) + "]"
				}
				return "[" + s + "]"
			},
			FormatLevel: func(interface{}) string { return "" },
		}
		out = zerolog.MultiLevelWriter(console, file)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

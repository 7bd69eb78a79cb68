// Package logging builds the zerolog loggers used by both binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Build collects where and how to log.
type Build struct {
	writer io.Writer
	path   string
	level  string
	pretty bool
}

// Log is a built logger and the file it writes to, if any.
type Log struct {
	Logger  zerolog.Logger
	LogFile *os.File
}

func New() *Build {
	return &Build{level: "info"}
}

// FromPath appends to the file at path instead of the writer.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

func (b *Build) FromWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// Level sets the minimum level by name: trace, debug, info, warn, error.
func (b *Build) Level(level string) *Build {
	b.level = level
	return b
}

// Pretty switches to human readable console output.
func (b *Build) Pretty(pretty bool) *Build {
	b.pretty = pretty
	return b
}

func (b *Build) Make() (*Log, error) {
	level, err := ParseLevel(b.level)
	if err != nil {
		return nil, err
	}

	log := &Log{}
	w := b.writer
	if w == nil {
		w = os.Stderr
	}
	if b.path != "" {
		log.LogFile, err = os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = zerolog.SyncWriter(log.LogFile)
	}
	if b.pretty && b.path == "" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, nil
}

// Close closes the log file.
func (l *Log) Close() error {
	if l.LogFile == nil {
		return nil
	}
	return l.LogFile.Close()
}

// ParseLevel is zerolog.ParseLevel that treats an empty name as info.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// Package logging builds the process logger and carries request-scoped
// entries through context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// New returns a logger writing to stdout at the given level and format
// ("json" or "text"). Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Nop returns an entry that discards everything below panic.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// WithEntry attaches a request-scoped entry to ctx.
func WithEntry(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, entry)
}

// FromContext returns the entry attached to ctx, or one on the standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok && entry != nil {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

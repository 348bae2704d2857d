package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/dataforge/internal/engine"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
)

// Formats lists the accepted formats.
var Formats = []Format{FormatJSON, FormatSQL}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q: must be one of %v", s, Formats)
}

type config struct {
	indent    string
	pluralize bool
	batchSize int
	columns   map[string][]string
	logger    *slog.Logger
}

// Option configures a writer.
type Option func(*config)

// WithIndent indents JSON output with the given string per level.
func WithIndent(indent string) Option {
	return func(c *config) {
		c.indent = indent
	}
}

// WithPluralize names SQL tables by pluralizing and snake-casing the
// collection name ("orderLine" -> "order_lines").
func WithPluralize(enabled bool) Option {
	return func(c *config) {
		c.pluralize = enabled
	}
}

// WithBatchSize groups up to n consecutive rows with the same columns
// into one INSERT. Values below 2 write one statement per row.
func WithBatchSize(n int) Option {
	return func(c *config) {
		c.batchSize = n
	}
}

// WithColumns restricts the SQL columns written for a collection.
func WithColumns(collection string, columns ...string) Option {
	return func(c *config) {
		if c.columns == nil {
			c.columns = make(map[string][]string)
		}
		c.columns[collection] = columns
	}
}

// WithLogger sets the logger for conversion warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) *config {
	c := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Write encodes res in the given format.
func Write(ctx context.Context, w io.Writer, res *engine.Result, format Format, opts ...Option) error {
	switch format {
	case FormatJSON:
		return WriteJSON(ctx, w, res, opts...)
	case FormatSQL:
		return NewSQLWriter(opts...).Write(ctx, w, res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

package reader

import (
	"io/fs"
	"log/slog"
)

type config struct {
	logger   *slog.Logger
	password string
	extended bool
	cmaps    fs.FS
	cache    bool
}

func defaultConfig() config {
	return config{cache: true}
}

// Option configures a Reader.
type Option func(*config)

// WithLogger sets the logger for one Reader: its own messages and those of
// the cross-reference walk during open. Fonts, pages, content streams and
// filters always log through logging.Logger, so set that too to see their
// Debug output. The logging package logger is used when l is nil.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithPassword records a password. Encrypted documents are still rejected;
// the error then states that decryption is unsupported.
func WithPassword(password string) Option {
	return func(c *config) {
		c.password = password
	}
}

// WithExtendedFilters enables ASCIIHexDecode, ASCII85Decode, LZWDecode and
// CCITTFaxDecode in addition to FlateDecode.
func WithExtendedFilters() Option {
	return func(c *config) {
		c.extended = true
	}
}

// WithCMapFS supplies predefined CMap resources, looked up by name
// (for example "UniJIS2004-UTF16-H").
func WithCMapFS(fsys fs.FS) Option {
	return func(c *config) {
		c.cmaps = fsys
	}
}

// WithObjectCache turns the per-Reader cache of resolved objects on or off.
// It is on by default. Object streams are always cached.
func WithObjectCache(enabled bool) Option {
	return func(c *config) {
		c.cache = enabled
	}
}

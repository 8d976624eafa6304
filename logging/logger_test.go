package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tsawler/pdfstruct/logging"
)

func TestLoggerDefaultsToDiscard(t *testing.T) {
	old := logging.Logger()
	t.Cleanup(func() { logging.SetLogger(old) })

	logging.SetLogger(nil)
	log := logging.Logger()
	assert.NotNil(t, log)
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}

func TestSetLoggerCapturesOutput(t *testing.T) {
	old := logging.Logger()
	t.Cleanup(func() { logging.SetLogger(old) })

	var buf bytes.Buffer
	logging.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	logging.Logger().Debug("unsupported filter", "filter", "LZWDecode")

	assert.Contains(t, buf.String(), "unsupported filter")
	assert.Contains(t, buf.String(), "filter=LZWDecode")
}

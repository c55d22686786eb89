package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvine/billing/pkg/environment"
	"github.com/fieldvine/billing/pkg/logger"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNew_DefaultsToJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))
	log.Info("hello")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestNew_StaticAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("service", "billing")),
	)
	log.Info("hello")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "billing", rec["service"])
}

func TestNew_ContextExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	)

	ctx := environment.WithContext(context.Background(), "production")
	log.InfoContext(ctx, "hello")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "production", rec["env"])
}

func TestNew_ExtractorSkipsMissingValue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	)
	log.InfoContext(context.Background(), "hello")

	rec := decodeLine(t, &buf)
	_, ok := rec["env"]
	assert.False(t, ok)
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithTextFormatter())
	log.Info("hello")

	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_DebugFilteredByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))
	log.Debug("noise")

	assert.Zero(t, buf.Len())
}

func TestWithFormat_PanicsOnUnknown(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("yaml")))
	})
}

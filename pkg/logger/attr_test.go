package logger_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fieldvine/billing/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", logger.Error(errors.New("boom")).Key)
	assert.Empty(t, logger.Error(nil).Key)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	attr := logger.Errors(errors.New("first"), nil, errors.New("third"))
	assert.Equal(t, "errors", attr.Key)
	assert.Len(t, attr.Value.Group(), 2)

	assert.Empty(t, logger.Errors(nil, nil).Key)
}

func TestIDAttrs(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	assert.Equal(t, "tenant_id", logger.TenantID(id).Key)
	assert.Empty(t, logger.TenantID(nil).Key)
	assert.Equal(t, "job_id", logger.JobID(id).Key)
	assert.Equal(t, "export_id", logger.ExportID(id).Key)
	assert.Equal(t, "event_id", logger.EventID("evt_1").Key)
	assert.Equal(t, "queue", logger.Queue("emails").Key)
	assert.Equal(t, "attempts", logger.Attempts(3).Key)
}

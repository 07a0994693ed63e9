package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderTask(t *testing.T) {
	task, err := NewRenderTask("job-1", "corr-1")
	require.NoError(t, err)
	assert.Equal(t, TypeRenderDocument, task.Type())

	payload, err := ParseRenderPayload(task)
	require.NoError(t, err)
	assert.Equal(t, RenderPayload{JobID: "job-1", CorrelationID: "corr-1"}, payload)
}

func TestParseRenderPayload_Invalid(t *testing.T) {
	_, err := ParseRenderPayload(asynq.NewTask(TypeRenderDocument, []byte("{")))
	assert.Error(t, err)

	_, err = ParseRenderPayload(asynq.NewTask(TypeRenderDocument, []byte(`{"correlation_id":"x"}`)))
	assert.ErrorContains(t, err, "missing job_id")
}

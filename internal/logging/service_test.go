package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firewatch-worker-go/internal/config"
)

func logFields(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	return fields
}

func TestNewServiceLogger_CarriesWorkerAndService(t *testing.T) {
	cfg := &config.Config{WorkerID: "worker-test"}

	var buf bytes.Buffer
	logger := NewServiceLogger(cfg, "pipeline").Output(&buf)
	logger.Info().Msg("hello")

	fields := logFields(t, &buf)
	assert.Equal(t, "worker-test", fields["worker_id"])
	assert.Equal(t, "pipeline", fields["service"])
	assert.Equal(t, "hello", fields["message"])
}

func TestWithSource_AddsSourceField(t *testing.T) {
	cfg := &config.Config{WorkerID: "worker-test"}

	var buf bytes.Buffer
	logger := WithSource(NewServiceLogger(cfg, "pipeline"), "rtsp://cam-1").Output(&buf)
	logger.Info().Msg("frame")

	fields := logFields(t, &buf)
	assert.Equal(t, "worker-test", fields["worker_id"])
	assert.Equal(t, "pipeline", fields["service"])
	assert.Equal(t, "rtsp://cam-1", fields["source"])
}

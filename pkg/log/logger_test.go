package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-throttle/pkg/log"
)

func TestLogger_JSON_WritesFieldsAndContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.LevelDebug, log.WithWriter(&buf))

	ctx := logger.WithContext(context.Background(), log.Fields{"queueID": "qid-test-000"})
	logger.
		WithField("taskID", "0-1-abc").
		WithError(errors.New("unexpected")).
		Warn(ctx, "cleanup failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "cleanup failed", entry["msg"])
	assert.Equal(t, "0-1-abc", entry["taskID"])
	assert.Equal(t, "qid-test-000", entry["queueID"])
	assert.Equal(t, "unexpected", entry["error"])
}

func TestLogger_Text_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.LevelInfo, log.WithWriter(&buf), log.WithFormat(log.FormatText))

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.LevelDebug, log.ParseLevel("DEBUG"))
	assert.Equal(t, log.LevelWarn, log.ParseLevel("warning"))
	assert.Equal(t, log.LevelDisabled, log.ParseLevel("disabled"))
	assert.Equal(t, log.LevelInfo, log.ParseLevel("verbose"))
}

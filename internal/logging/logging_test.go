package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", "json")
	require.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("tenant_id", 7).Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.EqualValues(t, 7, line["tenant_id"])
}

func TestNewWithWriterUnknownLevel(t *testing.T) {
	logger := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	require.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestFromContext(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))

	entry := Nop().WithField("request-id", "abc")
	ctx := WithEntry(context.Background(), entry)
	require.Same(t, entry, FromContext(ctx))
}

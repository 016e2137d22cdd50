package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerFallsBackToGlobal(t *testing.T) {
	ctx := context.Background()
	entry := G(ctx)
	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	custom := logrus.New()
	custom.SetOutput(&buf)
	custom.SetLevel(logrus.DebugLevel)

	ctx := WithLogger(context.Background(), logrus.NewEntry(custom).WithField("component", "traversal"))
	G(ctx).Debug("walking")

	assert.Contains(t, buf.String(), "walking")
	assert.Contains(t, buf.String(), "traversal")
}

func TestSetLogLevel(t *testing.T) {
	require.NoError(t, SetLogLevel("warn"))
	assert.Equal(t, logrus.WarnLevel, L.Logger.GetLevel())
	require.NoError(t, SetLogLevel("info"))

	assert.Error(t, SetLogLevel("shout"))
}

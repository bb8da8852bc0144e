package logging

import (
	"bytes"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesSubsystemTag(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, "info")
	require.NoError(t, err)

	b.Logger(SubsystemLedger).Infof("picked %s", "Yes")
	b.Logger(SubsystemLedger).Debugf("hidden")

	out := buf.String()
	assert.Contains(t, out, "LDGR")
	assert.Contains(t, out, "picked Yes")
	assert.NotContains(t, out, "hidden")
}

func TestSetLevelAppliesToExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, "info")
	require.NoError(t, err)

	l := b.Logger(SubsystemSession)
	b.SetLevel(slog.LevelDebug)
	l.Debugf("now visible")

	assert.Contains(t, buf.String(), "now visible")
	assert.Same(t, l, b.Logger(SubsystemSession))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, "loud")
	assert.Error(t, err)
}

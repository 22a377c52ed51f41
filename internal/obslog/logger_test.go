package obslog

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger)
}

func TestOutputSplitter_RoutesErrorLevelToStderr(t *testing.T) {
	origStdout, origStderr := os.Stdout, os.Stderr
	defer func() { os.Stdout, os.Stderr = origStdout, origStderr }()

	rOut, wOut, err := os.Pipe()
	require.NoError(t, err)
	rErr, wErr, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout, os.Stderr = wOut, wErr

	var splitter OutputSplitter
	_, err = splitter.Write([]byte("level=error msg=\"boom\"\n"))
	require.NoError(t, err)
	_, err = splitter.Write([]byte("level=info msg=\"ok\"\n"))
	require.NoError(t, err)

	wOut.Close()
	wErr.Close()

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	assert.Contains(t, errBuf.String(), "boom")
	assert.Contains(t, outBuf.String(), "ok")
	assert.NotContains(t, errBuf.String(), "ok")
}

func TestNew_DefaultsTimeFormatAndInfoLevel(t *testing.T) {
	entry := New(Config{})
	assert.Equal(t, logrus.InfoLevel, entry.Logger.Level)
	_, ok := entry.Logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok, "an unset Format must fall back to the text formatter")
}

func TestNew_JSONFormatSelectsJSONFormatter(t *testing.T) {
	entry := New(Config{Format: "json"})
	_, ok := entry.Logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	entry := New(Config{Level: "not-a-level"})
	assert.Equal(t, logrus.InfoLevel, entry.Logger.Level)
}

func TestNew_AttachesServiceField(t *testing.T) {
	entry := New(Config{Service: "rvpfprocessor"})
	assert.Equal(t, "rvpfprocessor", entry.Data["service"])
}

func TestWithOperation_LogsStartAndCompleted(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	_, done := WithOperation(log, "ingest")
	done(nil)

	out := buf.String()
	assert.Contains(t, out, "operation started")
	assert.Contains(t, out, "operation completed")
	assert.Contains(t, out, "duration_ms")
}

func TestWithOperation_LogsFailureWithError(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	_, done := WithOperation(log, "ingest")
	done(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "operation failed")
	assert.Contains(t, out, "boom")
}

func TestLogPanic_RecoversAndLogsWithoutRepanicking(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	func() {
		defer LogPanic(log)
		panic("kaboom")
	}()

	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "kaboom")
}

package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_CreatesServiceFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitLogger("debug", dir, "advisor"))
	defer func() { Logger = nil; service = "" }()

	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	Info("queue started", map[string]interface{}{"pending": 0})
	Error("agent failed", nil)

	_, err := os.Stat(filepath.Join(dir, "advisor-info.log"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "advisor-error.log"))
	assert.NoError(t, err)
}

func TestInitLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, InitLogger("chatty", t.TempDir(), ""))
	defer func() { Logger = nil }()

	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}

func TestFileHook_RoutesByLevel(t *testing.T) {
	var errBuf, infoBuf, debugBuf bytes.Buffer
	hook := &FileHook{ErrorWriter: &errBuf, InfoWriter: &infoBuf, DebugWriter: &debugBuf}

	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	l.SetLevel(logrus.DebugLevel)
	l.AddHook(hook)

	l.Error("e")
	l.Warn("w")
	l.Debug("d")

	assert.Contains(t, errBuf.String(), "msg=e")
	assert.Contains(t, infoBuf.String(), "msg=w")
	assert.Contains(t, debugBuf.String(), "msg=d")
	assert.NotContains(t, infoBuf.String(), "msg=e")
}

func TestHelpers_NilLoggerIsSafe(t *testing.T) {
	Logger = nil
	assert.NotPanics(t, func() {
		Info("x", nil)
		WarnMsg("y")
		DebugMsg("z")
		ErrorMsg("w")
	})
}

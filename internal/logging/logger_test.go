package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withOptions(t *testing.T, opts Options) {
	t.Helper()
	prev := currentOptions()
	Configure(opts)
	t.Cleanup(func() { Configure(prev) })
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" debug ")
	assert.True(t, ok)
	assert.Equal(t, DEBUG, lvl)

	lvl, ok = ParseLevel("Warning")
	assert.True(t, ok)
	assert.Equal(t, WARN, lvl)

	lvl, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, INFO, lvl, "Неизвестный уровень превращается в INFO")

	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggerLevelsAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	withOptions(t, Options{Dir: dir, ConsoleLevel: WARN, FileLevel: DEBUG, Console: &console})

	l, err := NewLogger("network")
	require.NoError(t, err)

	l.Trace("трассировка")
	l.Debug("отладка %d", 1)
	l.Info("инфо")
	l.Warn("предупреждение %s", "x")
	require.NoError(t, l.Close())

	assert.NotContains(t, console.String(), "инфо")
	assert.Contains(t, console.String(), "[WARN] [network] предупреждение x")

	files, err := filepath.Glob(filepath.Join(dir, "network_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] [network] отладка 1")
	assert.Contains(t, string(data), "[INFO] [network] инфо")
	assert.NotContains(t, string(data), "трассировка")

	// после Close запись в файл прекращается, консоль продолжает работать
	l.Error("после закрытия")
	assert.Contains(t, console.String(), "после закрытия")
}

func TestLoggerWithoutDir(t *testing.T) {
	var console bytes.Buffer
	withOptions(t, Options{ConsoleLevel: TRACE, FileLevel: TRACE, Console: &console})

	l, err := NewLogger("world")
	require.NoError(t, err)
	assert.True(t, l.Enabled(TRACE))
	l.Trace("шаг")
	assert.Contains(t, console.String(), "[TRACE] [world] шаг")

	l.SetLevels(ERROR, ERROR)
	assert.False(t, l.Enabled(WARN))
}

func TestManagerReturnsSameLogger(t *testing.T) {
	withOptions(t, Options{ConsoleLevel: ERROR, FileLevel: ERROR, Console: &bytes.Buffer{}})
	lm := NewLoggerManager()

	a, err := lm.GetLogger("api")
	require.NoError(t, err)
	b, err := lm.GetLogger("api")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = lm.GetLogger("eventbus")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "eventbus"}, lm.ListComponents())

	require.NoError(t, lm.SetLogLevel("api", DEBUG, DEBUG))
	assert.True(t, a.Enabled(DEBUG))
	assert.Error(t, lm.SetLogLevel("missing", DEBUG, DEBUG))
	require.NoError(t, lm.CloseAll())
}

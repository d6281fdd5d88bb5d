package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(WarnLevel, &buf)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", map[string]interface{}{"param": "a"})
	l.WithError(errors.New("boom")).Error("failed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "a", lines[0]["param"])
	assert.Contains(t, lines[0]["caller"], "logger_test.go")
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestLoggerFieldsDoNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := New(InfoLevel, &buf)
	base.WithField("fit", "x").Info("child")
	base.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "x", lines[0]["fit"])
	assert.NotContains(t, lines[1], "fit")
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithFormat(DebugLevel, FormatText, &buf)
	l.Debug("engine run", map[string]interface{}{"nfcn": 12, "note": "two words"})
	line := buf.String()
	assert.Contains(t, line, "DEBUG engine run")
	assert.Contains(t, line, "nfcn=12")
	assert.Contains(t, line, `note="two words"`)
}

func TestLoggerFatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf)
	code := -1
	l.exit = func(c int) { code = c }
	l.Fatal("bye")
	assert.Equal(t, 1, code)
}

func TestNewLoggerConfig(t *testing.T) {
	_, err := NewLogger(&Config{Level: "debug", Format: "yaml", Output: "stderr"})
	require.Error(t, err)

	l, err := NewLogger(&Config{Level: "nonsense", Format: "text"})
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, l.level)
	assert.Equal(t, FormatText, l.format)
}

func TestZapLogger(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf)).Named("fit").With(zap.String("session", "s1"))
	zl.Debug("hidden")
	zl.Warn("value clamped", zap.Float64("value", 2.5), zap.Int("nfcn", 7), zap.Bool("strict", false))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "fit", lines[0]["logger"])
	assert.Equal(t, "s1", lines[0]["session"])
	assert.Equal(t, 2.5, lines[0]["value"])
	assert.Equal(t, 7.0, lines[0]["nfcn"])
	assert.Equal(t, false, lines[0]["strict"])
	assert.Contains(t, lines[0]["caller"], "logger_test.go")
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Middleware(New(InfoLevel, &buf)))
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
		http.NotFound(w, r)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "inside", lines[0]["message"])
	assert.NotEmpty(t, lines[0]["request_id"])
	assert.Equal(t, 404.0, lines[1]["status"])
	assert.Equal(t, "Not Found", lines[1]["error"])
}

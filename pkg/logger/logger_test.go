package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestGetReturnsDefaultLogger(t *testing.T) {
	global = nil
	assert.NotNil(t, Get())
}

func TestNamedStampsServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("info", "json", &buf).Named("session")

	l.Info().Str("user_id", "ada").Msg("Signed in")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, Service, line["service"])
	assert.Equal(t, "session", line["component"])
	assert.Equal(t, "ada", line["user_id"])
	assert.Equal(t, "Signed in", line["message"])
}

func TestNewFallsBackWhenFileCannotOpen(t *testing.T) {
	l := New("info", "json", "/nonexistent-dir/app.log")
	assert.NotNil(t, l)
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWithWriter("debug", "json", &buf)

	router := gin.New()
	router.Use(GinMiddleware(l))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for path, level := range map[string]string{"/ok": "info", "/missing": "warn"} {
		buf.Reset()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		router.ServeHTTP(w, req)

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line), path)
		assert.Equal(t, level, line["level"], path)
		assert.Equal(t, path, line["path"])
	}
}

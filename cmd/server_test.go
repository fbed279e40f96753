package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anuragrao04/classroom-attendance/auth"
	"github.com/anuragrao04/classroom-attendance/config"
	"github.com/anuragrao04/classroom-attendance/handlers"
)

func TestRouterCORS(t *testing.T) {
	cfg := config.Config{AllowedOrigins: []string{"https://attendance.example"}}
	r := newRouter(cfg, handlers.New(handlers.Options{Auth: auth.NewManager("s3cret", 0, nil)}))

	req := httptest.NewRequest(http.MethodOptions, "/attendance/qr", nil)
	req.Header.Set("Origin", "https://attendance.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://attendance.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/attendance/qr", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCommandsAreRegistered(t *testing.T) {
	for _, path := range [][]string{{"server"}, {"migrate"}, {"faculty", "add"}} {
		c, _, err := rootCmd.Find(path)
		assert.NoError(t, err)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}

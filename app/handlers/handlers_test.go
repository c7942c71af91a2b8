package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleRobotsTXT(t *testing.T) {
	w := httptest.NewRecorder()
	HandleRobotsTXT(w, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "User-agent: *\r\n")
	assert.Contains(t, body, "Disallow: /api/\r\n")
}

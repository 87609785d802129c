package handlers

import (
	"document-review/pkg/errors"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		contains string
	}{
		{errors.NewValidationError("bad input"), http.StatusBadRequest, "bad input"},
		{errors.NewUnauthorizedError("not authorized"), http.StatusForbidden, "not authorized"},
		{errors.NewNotFoundError("document not found"), http.StatusNotFound, "document not found"},
		{errors.NewConflictError("not under review"), http.StatusConflict, "not under review"},
		{errors.NewDependencyError("failed to store", stderrors.New("disk full")), http.StatusBadGateway, "failed to store"},
		{fmt.Errorf("wrapped: %w", errors.NewNotFoundError("gone")), http.StatusNotFound, "gone"},
		{stderrors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		status, message := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.contains, message)
	}
}

func TestDependencyCauseNotExposed(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		handleServiceError(c, errors.NewDependencyError("failed to send", stderrors.New("smtp password rejected")))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "smtp password")
	assert.JSONEq(t, `{"error":{"code":502,"text":"failed to send"}}`, w.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/", RateLimitMiddleware(0.001, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.POST("/", RateLimitMiddleware(0, 0), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/files/:id", func(c *gin.Context) {
		handleServiceError(c, errors.NewDependencyError("failed to load", stderrors.New("db down")))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/abc", nil))

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "/files/:id", fields["path"])
		assert.Equal(t, int64(http.StatusBadGateway), fields["status"])
		assert.Contains(t, fields["error"], "db down")
	}
}

package handlers

import (
	"document-review/internal/interfaces/dto"
	"document-review/pkg/errors"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

func respondWithError(c *gin.Context, httpStatus, errorCode int, message string) {
	c.JSON(httpStatus, dto.APIResponse{
		Error: &dto.ErrorResponse{
			Code: errorCode,
			Text: message,
		},
	})
}

func respondWithSuccess(c *gin.Context, response, data any) {
	c.JSON(http.StatusOK, dto.APIResponse{
		Response: response,
		Data:     data,
	})
}

func errorStatus(err error) (int, string) {
	var (
		validation   *errors.ValidationError
		unauthorized *errors.UnauthorizedError
		notFound     *errors.NotFoundError
		conflict     *errors.ConflictError
		dependency   *errors.DependencyError
	)

	switch {
	case stderrors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case stderrors.As(err, &unauthorized):
		return http.StatusForbidden, unauthorized.Message
	case stderrors.As(err, &notFound):
		return http.StatusNotFound, notFound.Message
	case stderrors.As(err, &conflict):
		return http.StatusConflict, conflict.Message
	case stderrors.As(err, &dependency):
		return http.StatusBadGateway, dependency.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func handleServiceError(c *gin.Context, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	respondWithError(c, status, status, message)
}

func CORSMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

func HeadToGetMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		if c.Request.Method == "HEAD" {
			c.Request.Method = "GET"
			c.Writer = &headResponseWriter{c.Writer}
		}
		c.Next()
	})
}

type headResponseWriter struct {
	gin.ResponseWriter
}

func (w *headResponseWriter) Write(data []byte) (int, error) {
	return len(data), nil
}

// RequestLogger logs one line per request. Errors attached to the context by
// handleServiceError are logged with their cause.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

type limiterCache struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLimiterCache(rps float64, burst int) *limiterCache {
	return &limiterCache{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (lc *limiterCache) get(key string) *rate.Limiter {
	lc.mu.RLock()
	limiter, ok := lc.limiters[key]
	lc.mu.RUnlock()
	if ok {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if limiter, ok = lc.limiters[key]; ok {
		return limiter
	}
	if len(lc.limiters) >= maxTrackedClients {
		lc.limiters = make(map[string]*rate.Limiter)
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// RateLimitMiddleware limits requests per client IP. A non-positive rps
// disables it.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}

	cache := newLimiterCache(rps, burst)

	return func(c *gin.Context) {
		if !cache.get(c.ClientIP()).Allow() {
			respondWithError(c, http.StatusTooManyRequests, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

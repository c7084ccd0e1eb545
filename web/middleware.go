package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skekre98/autorun/core"
	"github.com/skekre98/autorun/logging"
)

type Ctx = *gin.Context
type Handler = gin.HandlerFunc
type Router = gin.IRouter

const requestIDKey = "request_id"

// RequestID sets/propagates a request ID and stores a request-scoped logger
// in the request context, so effects triggered by the request log with it.
func RequestID(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set(requestIDKey, id)
		ctx := logging.WithLogger(c.Request.Context(), l.With("req_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccessLog writes a structured access log after the request completes.
func AccessLog(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("http_access",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"req_id", c.GetString(requestIDKey),
		)
	}
}

// RecoveryProblem converts panics to RFC7807 "problem+json".
func RecoveryProblem(l *slog.Logger) Handler {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				l.Error("panic", "error", rec, "req_id", c.GetString(requestIDKey))
				Problem(c, http.StatusInternalServerError, "unexpected server error")
			}
		}()
		c.Next()
	}
}

// Await triggers the effects of every class and holds the request until they
// settled. A failed effect answers 503; the failure stays retryable, so the
// next request triggers it again. Giving up early (client gone, deadline)
// answers 504 and leaves the effects running.
func Await(s *core.Scheduler, classes ...*core.Class) Handler {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tasks := make([]*core.Task, len(classes))
		for i, cls := range classes {
			tasks[i] = s.Trigger(ctx, cls)
		}
		for i, t := range tasks {
			err := t.Wait(ctx)
			if err == nil {
				continue
			}
			logging.FromContext(ctx).Warn("module not ready", "module", classes[i].Name(), "error", err)
			if ctx.Err() != nil {
				Problem(c, http.StatusGatewayTimeout, "gave up waiting for "+classes[i].Name())
				return
			}
			Problem(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		c.Next()
	}
}

// Problem aborts the request with an RFC7807 body.
func Problem(c *gin.Context, status int, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, map[string]any{
		"type":   "about:blank",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

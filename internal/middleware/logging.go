package middleware

import (
	"net/http"
	"task_list/internal/auth"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LoggingMiddleware writes one access log line per request. Headers and
// bodies are never logged since they carry tokens and passwords.
func LoggingMiddleware(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"status":        status,
			"client_ip":     c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
			"duration_ms":   time.Since(start).Milliseconds(),
			"bytes_written": c.Writer.Size(),
		})
		if userID, ok := c.Get(auth.UserIDKey); ok {
			entry = entry.WithField("user_id", userID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case status >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}

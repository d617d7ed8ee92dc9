package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n

	return n, err
}

// quietPaths are polled constantly and only logged at debug level.
var quietPaths = map[string]bool{
	"/health":           true,
	"/metrics":          true,
	"/overlay/gameinfo": true,
}

// Logging returns middleware that logs every HTTP request. Server errors
// log at error level and client errors at warn.
func Logging(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			entry := logger.WithFields(logrus.Fields{
				"method":        r.Method,
				"path":          r.URL.Path,
				"status":        rw.statusCode,
				"duration_ms":   time.Since(start).Milliseconds(),
				"bytes_written": rw.bytesWritten,
				"remote_addr":   r.RemoteAddr,
				"user_agent":    r.UserAgent(),
			})

			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				entry.Error("HTTP request completed")
			case rw.statusCode >= http.StatusBadRequest:
				entry.Warn("HTTP request completed")
			case quietPaths[r.URL.Path]:
				entry.Debug("HTTP request completed")
			default:
				entry.Info("HTTP request completed")
			}
		})
	}
}

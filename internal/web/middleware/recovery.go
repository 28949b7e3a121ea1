package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
)

// RecoveryConfig holds configuration for the recovery middleware
type RecoveryConfig struct {
	// EnableStackTrace adds the goroutine stack to the log entry
	EnableStackTrace bool
	// ResponseHandler writes the response after a panic
	ResponseHandler func(http.ResponseWriter, *http.Request, interface{})
}

// DefaultRecoveryConfig returns the default recovery configuration
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		ResponseHandler:  defaultRecoveryResponse,
	}
}

// Recovery creates a middleware that recovers from panics
func Recovery() Middleware {
	return RecoveryWithConfig(DefaultRecoveryConfig())
}

// RecoveryWithConfig creates a recovery middleware with custom configuration.
// The panic is logged through the request logger, so Recovery must run
// inside Logging to carry the request id.
func RecoveryWithConfig(config RecoveryConfig) Middleware {
	if config.ResponseHandler == nil {
		config.ResponseHandler = defaultRecoveryResponse
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				fields := []zap.Field{
					zap.String("panic", fmt.Sprint(rec)),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				}
				if config.EnableStackTrace {
					fields = append(fields, zap.ByteString("stack", debug.Stack()))
				}
				webcontext.Logger(r.Context()).Error("panic recovered", fields...)

				config.ResponseHandler(w, r, rec)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// defaultRecoveryResponse answers JSON clients with a JSON body and
// everybody else with plain text.
func defaultRecoveryResponse(w http.ResponseWriter, r *http.Request, _ interface{}) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") || strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_server_error","message":"An unexpected error occurred"}`))
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"flashdeck-backend/internal/logger"
)

const (
	RequestIDHeader            = "X-Request-ID"
	requestIDKey    contextKey = "request_id"
)

// RequestID reuses an incoming X-Request-ID or assigns a new one, echoes it
// on the response and scopes the request logger to it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

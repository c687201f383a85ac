package middleware

import (
	"net/http"

	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware puts a request id and the filesystem token into the
// request context so every log line of a call can be correlated.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := logging.GetRequestIDFromCtx(ctx)
		if requestID == "" {
			requestID = r.Header.Get(RequestIDHeader)
		}

		// Client ids that are too long or contain control bytes are replaced
		if logging.ValidRequestID(requestID) {
			ctx = logging.MakeContextWithRequestID(ctx, requestID)
		} else {
			ctx = logging.MakeContextWithNewRequestID(ctx)
		}
		w.Header().Set(RequestIDHeader, logging.GetRequestIDFromCtx(ctx))

		if token := r.URL.Query().Get("token"); token != "" {
			ctx = logging.MakeContextWithToken(ctx, token)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

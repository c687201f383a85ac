package logging

import (
	"context"

	"github.com/google/uuid"
)

// MaxRequestIDLen bounds ids accepted from clients.
const MaxRequestIDLen = 64

func GetRequestIDFromCtx(ctx context.Context) string {
	s, _ := ctx.Value(reqKey).(string)
	return s
}

func MakeContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, reqKey, requestID)
}

func MakeContextWithNewRequestID(ctx context.Context) context.Context {
	return MakeContextWithRequestID(ctx, uuid.NewString())
}

// ValidRequestID reports whether a client supplied id can be reused as is.
func ValidRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

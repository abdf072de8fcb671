package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// SlowOp is the duration above which Time logs an operation as slow.
var SlowOp = 500 * time.Millisecond

// WithRequestID stores the request id that Time and the access log report.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, reqID)
}

// RequestID returns the request id stored in ctx, or "" for background work.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(RequestIDKey).(string)
	return reqID
}

func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		slow := ""
		if dur > SlowOp {
			slow = " slow=true"
		}

		if errp != nil && *errp != nil {
			log.Printf("req_id=%s op=%s dur=%dms%s err=%v", reqID, name, dur.Milliseconds(), slow, *errp)
			return
		}
		log.Printf("req_id=%s op=%s dur=%dms%s", reqID, name, dur.Milliseconds(), slow)
	}
}

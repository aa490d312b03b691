package packserve

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"

	"github.com/tailored-agentic-units/rrp/observability"
)

// NewRateLimitInterceptor rejects server requests with
// CodeResourceExhausted once limiter runs dry. Client calls pass through.
func NewRateLimitInterceptor(limiter *rate.Limiter) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}
			if !limiter.Allow() {
				return nil, connect.NewError(connect.CodeResourceExhausted, ErrRateLimited)
			}
			return next(ctx, req)
		}
	}
}

// NewObserverInterceptor emits an EventRequest for every server request.
func NewObserverInterceptor(observer observability.Observer) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				return next(ctx, req)
			}

			start := time.Now()
			resp, err := next(ctx, req)

			level := observability.LevelVerbose
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				level = observability.LevelWarning
			}
			observer.OnEvent(ctx, observability.Event{
				Type:      EventRequest,
				Level:     level,
				Timestamp: time.Now(),
				Source:    "packserve.Server",
				Data: map[string]any{
					"procedure":   req.Spec().Procedure,
					"peer":        req.Peer().Addr,
					"code":        code,
					"duration_ms": time.Since(start).Milliseconds(),
				},
			})
			return resp, err
		}
	}
}

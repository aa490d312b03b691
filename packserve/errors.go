package packserve

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/resource"
)

// ErrRateLimited is returned when a request exceeds the server's rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// toConnect maps pack errors onto Connect codes.
func toConnect(err error) error {
	var resolveErr *pack.ResolveError
	switch {
	case errors.Is(err, pack.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, pack.ErrInvalidRootPath),
		errors.Is(err, pack.ErrInvalidPath),
		errors.Is(err, resource.ErrInvalidID):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, pack.ErrInvalidManifest):
		return connect.NewError(connect.CodeDataLoss, err)
	case errors.Is(err, pack.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.As(err, &resolveErr):
		return connect.NewError(connect.CodeInternal, err)
	default:
		return connect.NewError(connect.CodeUnknown, err)
	}
}

// fromConnect maps Connect codes back onto the sentinels callers of the
// local pack API already check for.
func fromConnect(err error) error {
	switch connect.CodeOf(err) {
	case connect.CodeNotFound:
		return errors.Join(pack.ErrNotFound, err)
	case connect.CodeResourceExhausted:
		return errors.Join(ErrRateLimited, err)
	case connect.CodeUnavailable:
		return errors.Join(pack.ErrClosed, err)
	default:
		return err
	}
}

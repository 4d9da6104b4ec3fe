// Package actorctx carries the request id and the authenticated caller's id
// on a context.Context so code below the HTTP layer can log them.
package actorctx

import "context"

type (
	userKey    struct{}
	requestKey struct{}
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userKey{}).(string)

	return v, ok && v != ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestKey{}, requestID)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestKey{}).(string)

	return v, ok && v != ""
}

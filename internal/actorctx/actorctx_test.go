package actorctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no user")
	}

	ctx := WithUserID(context.Background(), "u-1")
	id, ok := UserIDFrom(ctx)
	if !ok || id != "u-1" {
		t.Fatalf("got %q %v", id, ok)
	}

	if _, ok := UserIDFrom(WithUserID(context.Background(), "")); ok {
		t.Fatalf("blank id should not count")
	}
}

func TestRequestIDIndependentOfUser(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "u-1")

	rid, ok := RequestIDFrom(ctx)
	if !ok || rid != "req-1" {
		t.Fatalf("got %q %v", rid, ok)
	}

	if _, ok := RequestIDFrom(WithUserID(context.Background(), "u-1")); ok {
		t.Fatalf("user id must not leak into the request id")
	}
}

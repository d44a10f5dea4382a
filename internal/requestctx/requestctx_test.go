package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
	ctx = WithRequestID(ctx, "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
}

func TestLoggerFallbacks(t *testing.T) {
	fallback := zap.NewNop().Named("fallback")
	if got := Logger(context.Background(), fallback); got != fallback {
		t.Fatal("expected fallback logger")
	}
	if got := Logger(context.Background(), nil); got == nil {
		t.Fatal("expected a non-nil logger")
	}

	scoped := zap.NewNop().Named("scoped")
	ctx := WithLogger(context.Background(), scoped)
	if got := Logger(ctx, fallback); got != scoped {
		t.Fatal("expected request scoped logger")
	}
}

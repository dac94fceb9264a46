package observability

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer_EmptyEndpointDisablesExport(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "tmplq-test", "")
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown returned %v", err)
	}
}

func TestInitTracer_UnreachableEndpoint(t *testing.T) {
	// The gRPC connection is lazy, so an unreachable collector does not fail init.
	shutdown, err := InitTracer(context.Background(), "tmplq-test", "invalid-endpoint:9999")
	if err != nil {
		t.Logf("InitTracer failed in this environment: %v", err)
		return
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function to be non-nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	_ = shutdown(shutdownCtx)
}

package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-scribe-service/internal/observability/metrics"
)

func TestServer_Readiness(t *testing.T) {
	ready := false
	srv := NewServer(":0", func() bool { return ready })

	tests := []struct {
		name   string
		path   string
		ready  bool
		status int
	}{
		{"healthz always ok", "/healthz", false, http.StatusOK},
		{"readyz before start", "/readyz", false, http.StatusServiceUnavailable},
		{"readyz after start", "/readyz", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.ready
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestServer_NilReadyFunc(t *testing.T) {
	srv := NewServer(":0", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected ready without a ready func, got %d", rec.Code)
	}
}

func TestUnaryServerInterceptor_PassesThrough(t *testing.T) {
	interceptor := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "resp", nil
	})
	if err != nil || resp != "resp" {
		t.Errorf("unexpected result %v, %v", resp, err)
	}

	wantErr := status.Error(codes.Unavailable, "down")
	_, err = interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected handler error to be returned, got %v", err)
	}
}

func TestStreamServerInterceptor_PassesThrough(t *testing.T) {
	interceptor := StreamServerInterceptor(metrics.DefaultMetrics)
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"}

	called := false
	err := interceptor(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("expected handler to run cleanly, called=%v err=%v", called, err)
	}
}

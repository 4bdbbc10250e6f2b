package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestWaitForShutdown(t *testing.T) {
	tests := []struct {
		name     string
		cancel   bool
		serveErr error
		wantLog  string
	}{
		{name: "Signal", cancel: true, wantLog: "received shutdown signal, shutting down gracefully"},
		{name: "Serve Failure", serveErr: errors.New("listener closed"), wantLog: "failed to serve gRPC server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}
			serveErr := make(chan error, 1)
			if tt.serveErr != nil {
				serveErr <- tt.serveErr
			}

			core, logs := observer.New(zapcore.InfoLevel)
			healthServer := health.NewServer()

			done := make(chan struct{})
			go func() {
				waitForShutdown(ctx, serveErr, grpclib.NewServer(), healthServer, time.Second, zap.New(core))
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("waitForShutdown did not return")
			}

			assert.Equal(t, 1, logs.FilterMessage(tt.wantLog).Len())
			resp, err := healthServer.Check(context.Background(), &healthpb.HealthCheckRequest{})
			require.NoError(t, err)
			assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
		})
	}
}

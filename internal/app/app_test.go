package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/b2b-trading/internal/health"
	"github.com/vladislavdragonenkov/b2b-trading/internal/version"
)

func TestRun_MemoryServesAndShutsDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = freeAddr(t)
	cfg.GRPCAddr = freeAddr(t)
	cfg.MetricsAddr = freeAddr(t)
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, log.WithField("test", "run")) }()

	waitHTTP(t, fmt.Sprintf("http://%s/livez", cfg.MetricsAddr))
	waitHTTP(t, fmt.Sprintf("http://%s/api/products/1", cfg.HTTPAddr))

	conn, err := grpc.NewClient(cfg.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc client: %v", err)
	}
	defer conn.Close()
	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()
	resp, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("grpc health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_AddressInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := DefaultConfig()
	cfg.HTTPAddr = freeAddr(t)
	cfg.GRPCAddr = busy.Addr().String()
	cfg.MetricsAddr = freeAddr(t)

	err = Run(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "listen grpc") {
		t.Fatalf("expected listen grpc error, got %v", err)
	}
}

func TestSyncServingStatus(t *testing.T) {
	failing := true
	checks := healthcheck.NewHandler(version.Version())
	checks.RegisterChecker("storage", healthcheck.NewCheckFunc("storage", func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	}))
	srv := health.NewServer()
	ctx := context.Background()

	syncServingStatus(ctx, checks, srv)
	assertServing(t, srv, healthpb.HealthCheckResponse_NOT_SERVING)

	failing = false
	syncServingStatus(ctx, checks, srv)
	assertServing(t, srv, healthpb.HealthCheckResponse_SERVING)
}

func TestShutdownHelpers_Nil(_ *testing.T) {
	logger := log.WithField("test", "shutdown")
	shutdownAPI(nil, time.Second, logger)
	shutdownGRPC(nil, nil, time.Second, logger)
}

func assertServing(t *testing.T, srv *health.Server, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != want {
		t.Fatalf("expected %s, got %s", want, resp.GetStatus())
	}
}

// freeAddr находит свободный адрес для тестов.
func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().String()
}

// waitHTTP ждёт, пока адрес начнёт отвечать.
func waitHTTP(t *testing.T, url string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s did not respond in time", url)
}

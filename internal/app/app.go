package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/b2b-trading/internal/health"
	"github.com/vladislavdragonenkov/b2b-trading/internal/transport/httpapi"
)

const readinessSyncInterval = 10 * time.Second

// Run поднимает HTTP API, gRPC health и служебный HTTP-сервер и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config, logger *log.Entry) error {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	listeners, err := listenAll(cfg)
	if err != nil {
		return err
	}

	grpcServer, healthServer := newGRPCServer(logger)
	opsSrv := startOpsServer(listeners.ops, logger, deps.Health)
	api := httpapi.NewApp(deps.Services(), logger.WithField("layer", "http"))

	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	go watchReadiness(syncCtx, deps.Health, healthServer, readinessSyncInterval)

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", listeners.grpc.Addr())
		if err := grpcServer.Serve(listeners.grpc); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", listeners.api.Addr())
		if err := api.Listener(listeners.api); err != nil {
			errCh <- fmt.Errorf("http api server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		logger.WithError(err).Error("сервер завершился с ошибкой, останавливаем остальные")
		runErr = err
	}

	stopSync()
	shutdownAPI(api, cfg.ShutdownTimeout, logger)
	shutdownGRPC(grpcServer, healthServer, cfg.ShutdownTimeout, logger)
	shutdownHTTP(opsSrv, cfg.ShutdownTimeout, logger)
	return runErr
}

type runtimeListeners struct {
	api  net.Listener
	grpc net.Listener
	ops  net.Listener
}

// listenAll занимает все порты заранее, чтобы ошибка адреса возвращалась из Run.
func listenAll(cfg Config) (runtimeListeners, error) {
	var l runtimeListeners
	var err error
	if l.api, err = net.Listen("tcp", cfg.HTTPAddr); err != nil {
		return l, fmt.Errorf("listen http api %s: %w", cfg.HTTPAddr, err)
	}
	if l.grpc, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
		_ = l.api.Close()
		return l, fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	if l.ops, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
		_ = l.api.Close()
		_ = l.grpc.Close()
		return l, fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
	}
	return l, nil
}

func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// reflection нужен grpcurl
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	return grpcServer, healthServer
}

// watchReadiness переносит результат health checks в статус gRPC health.
func watchReadiness(ctx context.Context, checks *healthcheck.Handler, srv *health.Server, interval time.Duration) {
	syncServingStatus(ctx, checks, srv)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncServingStatus(ctx, checks, srv)
		}
	}
}

func syncServingStatus(ctx context.Context, checks *healthcheck.Handler, srv *health.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	if overall, _ := checks.Run(ctx); overall == healthcheck.StatusUnhealthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if ctx.Err() != nil {
		return
	}
	srv.SetServingStatus("", status)
}

func shutdownAPI(api *fiber.App, timeout time.Duration, logger *log.Entry) {
	if api == nil {
		return
	}
	if err := api.ShutdownWithTimeout(timeout); err != nil {
		logger.WithError(err).Warn("http api shutdown with error")
	}
}

func shutdownGRPC(srv *grpc.Server, healthServer *health.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if healthServer != nil {
		healthServer.Shutdown()
	}
	stoppedCh := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

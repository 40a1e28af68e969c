package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/app"
	"github.com/vladislavdragonenkov/b2b-trading/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "trading-service: %v\n", err)
		os.Exit(1)
	}
}

// run читает конфигурацию TRADING_*, настраивает логгер и блокируется до остановки сервиса.
func run(ctx context.Context, out io.Writer) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := app.NewLogger(cfg, out)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	entry := logger.WithField("component", "app")
	entry.WithFields(log.Fields{
		"version":        version.String(),
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
	}).Info("запускаем trading-service")

	if err := app.Run(ctx, cfg, entry); err != nil && !errors.Is(err, context.Canceled) {
		entry.WithError(err).Error("приложение завершилось с ошибкой")
		return err
	}

	entry.Info("trading-service остановлен")
	return nil
}

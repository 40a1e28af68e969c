// Package command выполняет команды ядра по схеме «проверить, затем
// выполнить в транзакции» и приводит ошибки к категориям domain.Error.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/metrics"
)

// Runner хранит общие зависимости команд.
type Runner struct {
	store   domain.Store
	logger  *log.Entry
	metrics *metrics.CommandMetrics
}

// NewRunner создаёт исполнителя команд. metrics может быть nil.
func NewRunner(store domain.Store, logger *log.Entry, m *metrics.CommandMetrics) *Runner {
	if logger == nil {
		logger = log.New().WithField("component", "command")
	}
	return &Runner{store: store, logger: logger, metrics: m}
}

// Execute проверяет команду функцией validate (без обращения к хранилищу),
// затем выполняет mutate в одной транзакции. Любая ошибка или паника в mutate
// откатывает транзакцию. validate может быть nil.
func Execute[T any](
	ctx context.Context,
	r *Runner,
	name string,
	validate func() error,
	mutate func(ctx context.Context, uow domain.UnitOfWork) (T, error),
) (result T, err error) {
	start := time.Now()
	r.metrics.CommandStarted()
	defer func() { r.finish(name, start, err) }()

	if validate != nil {
		if err = validate(); err != nil {
			return result, normalize(err)
		}
	}

	uow, err := r.store.Begin(ctx)
	if err != nil {
		return result, domain.Internal(err, "begin transaction")
	}

	committed := false
	defer func() {
		if p := recover(); p != nil {
			var zero T
			result, err = zero, domain.Internal(fmt.Errorf("panic: %v", p), "command "+name+" panicked")
		}
		if committed {
			return
		}
		r.rollback(ctx, name, uow)
	}()

	result, err = mutate(ctx, uow)
	if err != nil {
		var zero T
		return zero, normalize(err)
	}
	if err = uow.Commit(ctx); err != nil {
		var zero T
		return zero, normalize(fmt.Errorf("commit %s: %w", name, err))
	}
	committed = true
	return result, nil
}

// Query выполняет чтение вне транзакции с теми же правилами ошибок и метриками.
func Query[T any](
	ctx context.Context,
	r *Runner,
	name string,
	validate func() error,
	read func(ctx context.Context, repos domain.Repositories) (T, error),
) (result T, err error) {
	start := time.Now()
	r.metrics.CommandStarted()
	defer func() { r.finish(name, start, err) }()

	if validate != nil {
		if err = validate(); err != nil {
			return result, normalize(err)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			var zero T
			result, err = zero, domain.Internal(fmt.Errorf("panic: %v", p), "query "+name+" panicked")
		}
	}()

	result, err = read(ctx, r.store)
	if err != nil {
		var zero T
		return zero, normalize(err)
	}
	return result, nil
}

func (r *Runner) rollback(ctx context.Context, name string, uow domain.UnitOfWork) {
	r.metrics.RecordRollback(name)
	// откат не должен зависеть от уже отменённого контекста вызова
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uow.Rollback(rbCtx); err != nil {
		r.logger.WithError(err).WithField("command", name).Error("rollback failed")
	}
}

func (r *Runner) finish(name string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	r.metrics.CommandFinished(name, outcome, elapsed)

	entry := r.logger.WithFields(log.Fields{
		"command":     name,
		"duration_ms": elapsed.Milliseconds(),
	})
	switch {
	case err == nil:
		entry.Debug("command completed")
	case domain.KindOf(err) == domain.KindInternal:
		entry.WithError(err).Error("command failed")
	default:
		entry.WithError(err).WithField("kind", domain.KindOf(err)).Warn("command rejected")
	}
}

// normalize гарантирует, что наружу уходит *domain.Error. Ошибки без
// категории и отменённый контекст становятся Internal с исходным сообщением.
func normalize(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		return domain.Internal(err, "")
	}
	return &domain.Error{Kind: kind, Cause: err}
}

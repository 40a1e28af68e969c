package command

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
	"github.com/vladislavdragonenkov/b2b-trading/internal/metrics"
	"github.com/vladislavdragonenkov/b2b-trading/internal/storage/memory"
)

func newRunner(t *testing.T, store domain.Store) (*Runner, *logtest.Hook, *prometheus.Registry) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	reg := prometheus.NewRegistry()
	return NewRunner(store, logger.WithField("component", "test"), metrics.NewCommandMetricsWithRegisterer(reg)), hook, reg
}

func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestExecute_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	runner, hook, reg := newRunner(t, store)

	id, err := Execute(ctx, runner, "create_user", nil, func(ctx context.Context, uow domain.UnitOfWork) (int64, error) {
		user := domain.User{Name: "Buyer", Role: domain.UserRoleBuyer, Type: domain.UserTypeBuyer, Email: "b@example.com"}
		if err := uow.Users().Add(ctx, &user); err != nil {
			return 0, err
		}
		return user.ID, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = store.Users().GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, log.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, "create_user", hook.LastEntry().Data["command"])
	assert.Equal(t, float64(0), counter(t, reg, "trading_transaction_rollbacks_total"))
}

func TestExecute_ValidationSkipsTransaction(t *testing.T) {
	store := memory.NewStore()
	runner, hook, _ := newRunner(t, store)

	called := false
	_, err := Execute(context.Background(), runner, "noop",
		func() error { return domain.Validationf("name is required") },
		func(context.Context, domain.UnitOfWork) (struct{}, error) {
			called = true
			return struct{}{}, nil
		})

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
}

func TestExecute_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	runner, _, reg := newRunner(t, store)

	_, err := Execute(ctx, runner, "create_order", nil, func(ctx context.Context, uow domain.UnitOfWork) (int64, error) {
		order := domain.Order{CustomerID: 1, Status: domain.OrderStatusPending}
		if err := uow.Orders().Add(ctx, &order); err != nil {
			return 0, err
		}
		return 0, domain.NotFoundf("product %d not found", 7)
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, "product 7 not found", err.Error())

	n, countErr := store.Orders().Count(ctx, domain.OrderFilter{})
	require.NoError(t, countErr)
	assert.Zero(t, n)
	assert.Equal(t, float64(1), counter(t, reg, "trading_transaction_rollbacks_total"))
}

func TestExecute_UncategorizedErrorBecomesInternal(t *testing.T) {
	runner, hook, _ := newRunner(t, memory.NewStore())

	_, err := Execute(context.Background(), runner, "boom", nil, func(context.Context, domain.UnitOfWork) (int, error) {
		return 0, errors.New("disk on fire")
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
}

func TestExecute_StorageSentinelKeepsCategory(t *testing.T) {
	runner, _, _ := newRunner(t, memory.NewStore())

	_, err := Execute(context.Background(), runner, "update", nil, func(context.Context, domain.UnitOfWork) (int, error) {
		return 0, domain.ErrVersionConflict
	})

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindConflict, de.Kind)
	assert.True(t, domain.IsVersionConflict(err))
}

func TestExecute_RecoversPanic(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	runner, _, _ := newRunner(t, store)

	result, err := Execute(ctx, runner, "panicky", nil, func(ctx context.Context, uow domain.UnitOfWork) (int64, error) {
		order := domain.Order{CustomerID: 1, Status: domain.OrderStatusPending}
		_ = uow.Orders().Add(ctx, &order)
		panic("unexpected nil")
	})

	require.Error(t, err)
	assert.Zero(t, result)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Contains(t, err.Error(), "unexpected nil")

	n, countErr := store.Orders().Count(ctx, domain.OrderFilter{})
	require.NoError(t, countErr)
	assert.Zero(t, n)

	// транзакция освобождена, следующая команда не блокируется
	_, err = Execute(ctx, runner, "after_panic", nil, func(context.Context, domain.UnitOfWork) (int, error) { return 1, nil })
	require.NoError(t, err)
}

type failingBeginStore struct {
	domain.Store
}

func (failingBeginStore) Begin(context.Context) (domain.UnitOfWork, error) {
	return nil, errors.New("pool exhausted")
}

func TestExecute_BeginFailure(t *testing.T) {
	runner, _, _ := newRunner(t, failingBeginStore{Store: memory.NewStore()})

	_, err := Execute(context.Background(), runner, "create", nil, func(context.Context, domain.UnitOfWork) (int, error) {
		t.Fatal("mutate must not run without a transaction")
		return 0, nil
	})
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Contains(t, err.Error(), "pool exhausted")
}

func TestQuery_ReadsWithoutTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	runner, _, reg := newRunner(t, store)

	total, err := Query(ctx, runner, "count_orders", nil, func(ctx context.Context, repos domain.Repositories) (int, error) {
		return repos.Orders().Count(ctx, domain.OrderFilter{})
	})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = Query(ctx, runner, "get_order", nil, func(ctx context.Context, repos domain.Repositories) (domain.Order, error) {
		return repos.Orders().GetByID(ctx, 42)
	})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, float64(2), counter(t, reg, "trading_commands_total"))
}

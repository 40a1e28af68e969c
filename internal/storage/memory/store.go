package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

// ErrTxClosed возвращается при обращении к завершённой транзакции.
var ErrTxClosed = errors.New("memory: transaction already committed or rolled back")

// Store — in-memory хранилище для локальной разработки и тестов.
//
// Пишущие транзакции сериализуются: Begin захватывает право записи до Commit
// или Rollback и работает с копией состояния. Чтение вне транзакции видит
// только зафиксированное состояние. Запись вне транзакции из горутины,
// держащей открытую транзакцию, заблокируется до её завершения.
type Store struct {
	repositories
	writer    chan struct{}
	mu        sync.RWMutex
	committed *state
	now       func() time.Time
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени для CreatedAt/ModifiedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore возвращает пустое in-memory хранилище.
func NewStore(opts ...Option) *Store {
	s := &Store{
		writer:    make(chan struct{}, 1),
		committed: newState(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.repositories = bindRepositories(s, nil)
	return s
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.writer
}

// Begin открывает транзакцию над снимком текущего состояния.
func (s *Store) Begin(ctx context.Context) (domain.UnitOfWork, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	snapshot := s.committed.clone()
	s.mu.RUnlock()

	tx := &unitOfWork{store: s, state: snapshot}
	tx.repositories = bindRepositories(s, tx)
	return tx, nil
}

// Ping всегда успешен: хранилище живёт в памяти процесса.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// unitOfWork — транзакция над копией состояния. Не предназначена для
// одновременного использования из нескольких горутин.
type unitOfWork struct {
	repositories
	store *Store
	state *state
	done  bool
}

func (u *unitOfWork) current() (*state, error) {
	if u.done {
		return nil, ErrTxClosed
	}
	return u.state, nil
}

// Commit публикует изменения транзакции.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return ErrTxClosed
	}
	if err := ctx.Err(); err != nil {
		u.finish()
		return err
	}
	u.store.mu.Lock()
	u.store.committed = u.state
	u.store.mu.Unlock()
	u.finish()
	return nil
}

// Rollback отбрасывает изменения. Повторный вызов и вызов после Commit ничего не делают.
func (u *unitOfWork) Rollback(_ context.Context) error {
	if u.done {
		return nil
	}
	u.finish()
	return nil
}

func (u *unitOfWork) finish() {
	u.done = true
	u.state = nil
	u.store.release()
}

var (
	_ domain.Store      = (*Store)(nil)
	_ domain.UnitOfWork = (*unitOfWork)(nil)
)

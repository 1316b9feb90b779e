package scheduling

import (
	"context"
	"sync"

	"github.com/google/uuid"

	redisclient "github.com/mindwell/clinic-scheduling/internal/redis"
)

// localLocker serializes per-professional critical sections with in-process
// mutexes. Suitable for single-node deployments and tests; multi-node
// deployments use the Redis locker.
type localLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLocalLocker() redisclient.Locker {
	return &localLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *localLocker) WithProfessionalLock(ctx context.Context, professionalID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[professionalID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[professionalID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

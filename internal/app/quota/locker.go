package quota

import (
	"context"
	"hash/fnv"
	"sync"
)

// Locker serializes admission per user: the quota check and the job row
// creation run as one critical section so two concurrent uploads cannot
// both pass CanAdmit against stale counters.
type Locker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

// MutexLocker is the in-process Locker, a fixed array of striped mutexes
// keyed by a hash of the user id. Suitable whenever a single process owns
// admission for a user.
type MutexLocker struct {
	stripes [64]sync.Mutex
}

// NewMutexLocker creates an in-process per-user locker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{}
}

func (l *MutexLocker) Lock(_ context.Context, userID string) (func(), error) {
	h := fnv.New32a()
	h.Write([]byte(userID))
	mu := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mu.Lock()
	return mu.Unlock, nil
}

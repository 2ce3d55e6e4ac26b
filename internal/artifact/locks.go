package artifact

import "sync"

// keyLocks 按 xuid 串行化写操作；无人持有时回收
type keyLocks struct {
	mu sync.Mutex
	m  map[int64]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks { return &keyLocks{m: make(map[int64]*keyLock)} }

func (l *keyLocks) Lock(k int64) func() {
	l.mu.Lock()
	e, ok := l.m[k]
	if !ok {
		e = &keyLock{}
		l.m[k] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, k)
		}
		l.mu.Unlock()
	}
}

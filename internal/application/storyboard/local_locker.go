package storyboard

import (
	"context"
	"sync"
)

// LocalLocker 进程内会话锁，未启用 Redis 时使用（仅适用于单实例部署）
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// TryLock 非阻塞加锁
func (l *LocalLocker) TryLock(_ context.Context, sessionID string) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[sessionID]; ok {
		return nil, false, nil
	}
	l.held[sessionID] = struct{}{}

	var once sync.Once
	unlock := func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, sessionID)
			l.mu.Unlock()
		})
		return nil
	}
	return unlock, true, nil
}

var _ SessionLocker = (*LocalLocker)(nil)

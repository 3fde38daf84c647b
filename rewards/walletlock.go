package rewards

import "sync"

// walletLocks serialises read-modify-write sequences per wallet.
// Entries are reference counted and dropped when the last holder unlocks.
// It only excludes callers inside this process.
type walletLocks struct {
	mu    sync.Mutex
	locks map[Wallet]*walletLock
}

type walletLock struct {
	mu   sync.Mutex
	refs int
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[Wallet]*walletLock)}
}

// lock blocks until w is free and returns the matching unlock.
func (l *walletLocks) lock(w Wallet) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[w]
	if !ok {
		entry = &walletLock{}
		l.locks[w] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, w)
		}
		l.mu.Unlock()
	}
}

func (l *walletLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

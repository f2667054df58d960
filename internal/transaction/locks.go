package transaction

import "sync"

// walletLocks serializes transfer construction per wallet so two in-process
// requests cannot race on the same account nonce. Conflicts originating from
// other processes are still arbitrated by the chain node. Entries are
// refcounted and evicted once the last holder releases, so the map stays
// bounded by in-flight transfers rather than wallets ever seen.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]*walletLock
}

type walletLock struct {
	mu   sync.Mutex
	refs int
}

func newWalletLocks() *walletLocks {
	return &walletLocks{locks: make(map[string]*walletLock)}
}

func (l *walletLocks) lock(walletId string) func() {
	l.mu.Lock()
	entry, ok := l.locks[walletId]
	if !ok {
		entry = &walletLock{}
		l.locks[walletId] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, walletId)
		}
		l.mu.Unlock()
	}
}

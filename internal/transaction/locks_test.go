package transaction

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletLocksEvictReleasedEntries(t *testing.T) {
	locks := newWalletLocks()

	unlock := locks.lock("wallet-1")
	locks.mu.Lock()
	assert.Len(t, locks.locks, 1)
	locks.mu.Unlock()

	unlock()

	locks.mu.Lock()
	assert.Empty(t, locks.locks, "released entries must not accumulate")
	locks.mu.Unlock()
}

func TestWalletLocksSerializeSameWallet(t *testing.T) {
	locks := newWalletLocks()

	const holders = 32
	var wg sync.WaitGroup
	var inCritical, maxInCritical int
	var observe sync.Mutex

	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("wallet-1")
			defer unlock()

			observe.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			observe.Unlock()

			observe.Lock()
			inCritical--
			observe.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxInCritical, "same-wallet holders must never overlap")

	locks.mu.Lock()
	assert.Empty(t, locks.locks)
	locks.mu.Unlock()
}

func TestWalletLocksIndependentWallets(t *testing.T) {
	locks := newWalletLocks()

	unlockA := locks.lock("wallet-a")
	defer unlockA()

	released := make(chan struct{})
	go func() {
		unlockB := locks.lock("wallet-b")
		unlockB()
		close(released)
	}()

	// a held lock on wallet-a must not block wallet-b
	<-released
}

package server

import (
	"sync"
	"time"
)

// Ledger tracks per-credential session tokens within a rolling reset
// window. Each session costs one token; an exhausted account reports the
// time remaining until its window resets.
type Ledger struct {
	mu       sync.Mutex
	balance  int
	window   time.Duration
	now      func() time.Time
	accounts map[string]*account
}

type account struct {
	used  int
	reset time.Time
}

// NewLedger creates a Ledger granting balance tokens per window. A
// non-positive balance disables quota accounting entirely.
func NewLedger(balance int, window time.Duration) *Ledger {
	return &Ledger{
		balance:  balance,
		window:   window,
		now:      time.Now,
		accounts: make(map[string]*account),
	}
}

// Spend consumes one token for credential. When the account is exhausted
// it returns ok=false and the time remaining until the balance resets.
func (l *Ledger) Spend(credential string) (remaining time.Duration, ok bool) {
	if l.balance <= 0 {
		return 0, true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	acct := l.accounts[credential]
	if acct == nil || !now.Before(acct.reset) {
		acct = &account{reset: now.Add(l.window)}
		l.accounts[credential] = acct
	}
	if acct.used >= l.balance {
		return acct.reset.Sub(now), false
	}
	acct.used++
	return 0, true
}

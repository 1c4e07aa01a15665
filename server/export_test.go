package server

import "time"

// SetNow overrides the ledger clock for tests.
func (l *Ledger) SetNow(now func() time.Time) { l.now = now }

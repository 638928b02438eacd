package invoicing

import (
	"sync"

	"github.com/google/uuid"
)

// InvoiceLocker serializes mutating operations per invoice ID so two
// concurrent mutations of the same invoice cannot interleave their
// status recomputation. One instance is shared by every service that
// mutates invoices; a lock held by PaymentService blocks a concurrent
// Cancel on the same invoice. Entries are reference counted and
// removed when the last holder unlocks.
type InvoiceLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*invoiceLock
}

type invoiceLock struct {
	mu   sync.Mutex
	refs int
}

func NewInvoiceLocker() *InvoiceLocker {
	return &InvoiceLocker{
		locks: make(map[uuid.UUID]*invoiceLock),
	}
}

// Lock acquires the lock for the given invoice ID and returns the
// unlock function.
func (l *InvoiceLocker) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &invoiceLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

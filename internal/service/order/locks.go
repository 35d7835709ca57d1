package order

import "sync"

// customerLocks serializes admission and approval decisions per customer so
// two concurrent orders can never both read the same credit_used value before
// either commits its increment.
type customerLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{locks: make(map[int64]*sync.Mutex)}
}

// acquire locks the mutex for the given customer, creating it on first use.
// Locks are never removed; the map grows with the number of distinct
// customers seen by this process, which is bounded by the customer table.
func (c *customerLocks) acquire(customerID int64) *sync.Mutex {
	c.mu.Lock()
	l, ok := c.locks[customerID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[customerID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l
}

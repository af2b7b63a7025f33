package service

import "sync"

// PartnerLocks serializes all state transitions for a given partner. Every
// service that mutates partner, offer, or session state takes the partner's
// lock first, so concurrent accept/offline races resolve to one winner.
type PartnerLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewPartnerLocks() *PartnerLocks {
	return &PartnerLocks{locks: make(map[int]*sync.Mutex)}
}

// Lock acquires the lock for the partner and returns its unlock func.
func (l *PartnerLocks) Lock(partnerID int) func() {
	l.mu.Lock()
	m, ok := l.locks[partnerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[partnerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

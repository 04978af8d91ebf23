package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"toolcrib/internal/ledger"
	"toolcrib/internal/metrics"
	"toolcrib/internal/models"
)

// Monitor watches the ledger for cases whose grace period has lapsed
// without the item coming back. It never transitions a case itself; a lapse
// is an operator decision, so the monitor only surfaces the set and notifies.
type Monitor struct {
	ledger   *ledger.Ledger
	interval time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	lapsed   []models.Case
	lastScan time.Time

	// OnLapse is invoked with the newly lapsed cases found by a scan.
	OnLapse func(cases []models.Case)
}

// NewMonitor creates a grace-period monitor over the ledger.
func NewMonitor(led *ledger.Ledger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Monitor{
		ledger:   led,
		interval: interval,
		now:      time.Now,
	}
}

// Run scans on the configured interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.Scan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Scan()
		}
	}
}

// Scan recomputes the lapsed set and returns the cases that are newly
// lapsed since the previous scan.
func (m *Monitor) Scan() []models.Case {
	now := m.now()
	var lapsed []models.Case
	for _, c := range m.ledger.All() {
		if !c.Unresolved() || c.Status != models.StatusInGracePeriod {
			continue
		}
		if c.GraceExpiry != nil && c.GraceExpiry.Before(now) {
			lapsed = append(lapsed, c)
		}
	}
	sort.Slice(lapsed, func(i, j int) bool { return lapsed[i].ID < lapsed[j].ID })

	m.mu.Lock()
	known := make(map[string]bool, len(m.lapsed))
	for _, c := range m.lapsed {
		known[c.ID] = true
	}
	var fresh []models.Case
	for _, c := range lapsed {
		if !known[c.ID] {
			fresh = append(fresh, c)
		}
	}
	m.lapsed = lapsed
	m.lastScan = now
	m.mu.Unlock()

	metrics.LapsedGraceCases.Set(float64(len(lapsed)))
	if len(fresh) > 0 && m.OnLapse != nil {
		m.OnLapse(fresh)
	}
	return fresh
}

// Lapsed returns the cases currently past their grace expiry.
func (m *Monitor) Lapsed() []models.Case {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Case(nil), m.lapsed...)
}

// LastScan reports when the lapsed set was last recomputed.
func (m *Monitor) LastScan() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastScan
}

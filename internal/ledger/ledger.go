package ledger

import (
	"fmt"
	"sort"
	"sync"

	"toolcrib/internal/models"
)

// Ledger holds every issuance and liability case. The unresolved-variance
// index is derived from the case collection on each call rather than
// maintained incrementally; the collection is small and this keeps the index
// impossible to desynchronize.
type Ledger struct {
	mu    sync.RWMutex
	cases map[string]*models.Case
}

// ErrCaseNotFound is returned when a case id is not in the ledger.
var ErrCaseNotFound = fmt.Errorf("case not found")

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		cases: make(map[string]*models.Case),
	}
}

// Load replaces the case collection.
func (l *Ledger) Load(cases []models.Case) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cases = make(map[string]*models.Case, len(cases))
	for i := range cases {
		c := cases[i]
		l.cases[c.ID] = &c
	}
}

// Append adds a new case.
func (l *Ledger) Append(c models.Case) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cases[c.ID] = &c
}

// Replace overwrites an existing case.
func (l *Ledger) Replace(c models.Case) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cases[c.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrCaseNotFound, c.ID)
	}
	l.cases[c.ID] = &c
	return nil
}

// Get returns a copy of the case with the given id.
func (l *Ledger) Get(id string) (models.Case, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.cases[id]
	if !ok {
		return models.Case{}, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return cloneCase(c), nil
}

// All returns a copy of every case, ordered by id.
func (l *Ledger) All() []models.Case {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Case, 0, len(l.cases))
	for _, c := range l.cases {
		out = append(out, cloneCase(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnresolvedVariances returns every outstanding, unreturned, unresolved case
// against the given tool.
func (l *Ledger) UnresolvedVariances(toolID string) []models.Case {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Case
	for _, c := range l.cases {
		if c.ToolID == toolID && c.Unresolved() {
			out = append(out, cloneCase(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LeakedQty is the total quantity tied up in unresolved variances for the
// tool.
func (l *Ledger) LeakedQty(toolID string) int {
	total := 0
	for _, c := range l.UnresolvedVariances(toolID) {
		total += c.Quantity
	}
	return total
}

// LockedParts returns the normalized part names covered by unresolved
// variances against the tool. A locked part must not be toggled by any audit
// session until its owning case resolves; this is what prevents one defect
// from raising two live cases.
func (l *Ledger) LockedParts(toolID string) map[string]bool {
	locked := make(map[string]bool)
	for _, c := range l.UnresolvedVariances(toolID) {
		for _, t := range c.Defects {
			locked[models.NormalizePartName(t.Part)] = true
		}
		// Cases round-tripped through the store may carry tags only in
		// their notes.
		for _, t := range models.ParseDefectTags(c.Notes) {
			locked[models.NormalizePartName(t.Part)] = true
		}
	}
	return locked
}

func cloneCase(c *models.Case) models.Case {
	out := *c
	out.Defects = append([]models.DefectTag(nil), c.Defects...)
	out.History = append([]models.ActionEntry(nil), c.History...)
	if c.GraceExpiry != nil {
		t := *c.GraceExpiry
		out.GraceExpiry = &t
	}
	return out
}

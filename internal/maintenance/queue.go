package maintenance

import (
	"fmt"
	"sort"
	"sync"

	"toolcrib/internal/models"
)

// Queue receives repair tickets spawned by damaged audit findings and by
// damaged case recoveries. Ticket resolution happens elsewhere; the queue
// only stages and assigns.
type Queue struct {
	mu      sync.RWMutex
	records map[string]*models.MaintenanceRecord
}

var ErrRecordNotFound = fmt.Errorf("maintenance record not found")

func New() *Queue {
	return &Queue{records: make(map[string]*models.MaintenanceRecord)}
}

// Load replaces the queue contents.
func (q *Queue) Load(records []models.MaintenanceRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = make(map[string]*models.MaintenanceRecord, len(records))
	for i := range records {
		r := records[i]
		q.records[r.ID] = &r
	}
}

// Add stages a new repair ticket.
func (q *Queue) Add(r models.MaintenanceRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records[r.ID] = &r
}

// Assign hands a staged ticket to a technician.
func (q *Queue) Assign(id, staffID, staffName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	r.AssignedStaffID = staffID
	r.AssignedStaff = staffName
	r.Status = models.MaintenanceInProgress
	return nil
}

// Get returns a copy of one ticket.
func (q *Queue) Get(id string) (models.MaintenanceRecord, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	r, ok := q.records[id]
	if !ok {
		return models.MaintenanceRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return *r, nil
}

// List returns every ticket ordered by reported date, oldest first.
func (q *Queue) List() []models.MaintenanceRecord {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]models.MaintenanceRecord, 0, len(q.records))
	for _, r := range q.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReportedDate.Equal(out[j].ReportedDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].ReportedDate.Before(out[j].ReportedDate)
	})
	return out
}

// ForTool returns tickets raised against one asset.
func (q *Queue) ForTool(toolID string) []models.MaintenanceRecord {
	var out []models.MaintenanceRecord
	for _, r := range q.List() {
		if r.ToolID == toolID {
			out = append(out, r)
		}
	}
	return out
}

package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolcrib/internal/models"
)

func TestListOrdersByReportedDate(t *testing.T) {
	q := New()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	q.Add(models.MaintenanceRecord{ID: "M-2", ToolID: "T-1", ReportedDate: base.Add(time.Hour), Status: models.MaintenanceStaged})
	q.Add(models.MaintenanceRecord{ID: "M-1", ToolID: "T-2", ReportedDate: base, Status: models.MaintenanceStaged})
	q.Add(models.MaintenanceRecord{ID: "M-3", ToolID: "T-1", ReportedDate: base, Status: models.MaintenanceStaged})

	got := q.List()
	require.Len(t, got, 3)
	assert.Equal(t, "M-1", got[0].ID)
	assert.Equal(t, "M-3", got[1].ID, "ties break by id")
	assert.Equal(t, "M-2", got[2].ID)

	assert.Len(t, q.ForTool("T-1"), 2)
}

func TestAssignMovesTicketToInProgress(t *testing.T) {
	q := New()
	q.Add(models.MaintenanceRecord{ID: "M-1", ToolID: "T-1", Status: models.MaintenanceStaged})

	require.NoError(t, q.Assign("M-1", "EMP-030", "Ira Technician"))
	r, err := q.Get("M-1")
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceInProgress, r.Status)
	assert.Equal(t, "Ira Technician", r.AssignedStaff)

	assert.ErrorIs(t, q.Assign("ghost", "EMP-030", "Ira Technician"), ErrRecordNotFound)
}

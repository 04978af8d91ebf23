package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolcrib/internal/ledger"
	"toolcrib/internal/models"
)

func graceCase(id string, expiry time.Time) models.Case {
	return models.Case{
		ID: id, ToolID: "T-1", StaffName: "Sam Fitter", Quantity: 1,
		IssuanceType: models.IssuanceOutstanding,
		Stage:        models.StageSupervisor,
		Status:       models.StatusInGracePeriod,
		GraceExpiry:  &expiry,
	}
}

func TestScanFindsLapsedGraceCases(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	led := ledger.New()
	led.Load([]models.Case{
		graceCase("C-1", now.Add(-time.Hour)),
		graceCase("C-2", now.Add(time.Hour)),
	})

	m := NewMonitor(led, time.Minute)
	m.now = func() time.Time { return now }

	fresh := m.Scan()
	require.Len(t, fresh, 1)
	assert.Equal(t, "C-1", fresh[0].ID)
	assert.Len(t, m.Lapsed(), 1)
}

func TestScanReportsEachLapseOnce(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	led := ledger.New()
	led.Load([]models.Case{graceCase("C-1", now.Add(-time.Hour))})

	m := NewMonitor(led, time.Minute)
	m.now = func() time.Time { return now }

	var notified []string
	m.OnLapse = func(cases []models.Case) {
		for _, c := range cases {
			notified = append(notified, c.ID)
		}
	}

	require.Len(t, m.Scan(), 1)
	assert.Empty(t, m.Scan(), "a case already reported is not reported again")
	assert.Equal(t, []string{"C-1"}, notified)
}

func TestResolvedCaseLeavesLapsedSet(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	led := ledger.New()
	c := graceCase("C-1", now.Add(-time.Hour))
	led.Load([]models.Case{c})

	m := NewMonitor(led, time.Minute)
	m.now = func() time.Time { return now }
	require.Len(t, m.Scan(), 1)

	c.Status = models.StatusResolved
	require.NoError(t, led.Replace(c))
	assert.Empty(t, m.Scan())
	assert.Empty(t, m.Lapsed())
}

func TestPendingCasesAreIgnored(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	led := ledger.New()
	pending := graceCase("C-1", now.Add(-time.Hour))
	pending.Status = models.StatusPending
	pending.GraceExpiry = nil
	led.Load([]models.Case{pending})

	m := NewMonitor(led, time.Minute)
	m.now = func() time.Time { return now }
	assert.Empty(t, m.Scan())
}

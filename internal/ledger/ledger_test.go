package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolcrib/internal/models"
)

func testCases() []models.Case {
	return []models.Case{
		{ID: "C-1", ToolID: "T-1", Quantity: 1, IssuanceType: models.IssuanceOutstanding,
			Status: models.StatusPending,
			Defects: []models.DefectTag{{Part: "Socket B", Defect: models.PieceMissing}}},
		{ID: "C-2", ToolID: "T-1", Quantity: 2, IssuanceType: models.IssuanceOutstanding,
			Status: models.StatusResolved},
		{ID: "C-3", ToolID: "T-2", Quantity: 3, IssuanceType: models.IssuanceOutstanding,
			Status: models.StatusInGracePeriod},
		{ID: "C-4", ToolID: "T-1", Quantity: 4, IssuanceType: models.IssuanceStandard,
			Status: models.StatusPending},
	}
}

func TestUnresolvedVariances(t *testing.T) {
	l := New()
	l.Load(testCases())

	open := l.UnresolvedVariances("T-1")
	require.Len(t, open, 1, "resolved and standard-issuance cases are not variances")
	assert.Equal(t, "C-1", open[0].ID)
}

func TestLeakedQty(t *testing.T) {
	l := New()
	l.Load(testCases())
	assert.Equal(t, 1, l.LeakedQty("T-1"))
	assert.Equal(t, 3, l.LeakedQty("T-2"))
	assert.Equal(t, 0, l.LeakedQty("T-9"))
}

func TestLockedParts(t *testing.T) {
	l := New()
	l.Load(testCases())

	locked := l.LockedParts("T-1")
	assert.True(t, locked["SOCKET B"])
	assert.False(t, locked["SOCKET A"])
}

func TestLockedPartsFromNotes(t *testing.T) {
	// A case round-tripped through the store may carry its tags only in the
	// notes string.
	l := New()
	l.Load([]models.Case{
		{ID: "C-9", ToolID: "T-1", IssuanceType: models.IssuanceOutstanding,
			Status: models.StatusPending, Notes: "left on site [DAMAGED: driver]"},
	})
	assert.True(t, l.LockedParts("T-1")["DRIVER"])
}

func TestLockedPartsClearWhenResolved(t *testing.T) {
	l := New()
	l.Load(testCases())

	c, err := l.Get("C-1")
	require.NoError(t, err)
	c.Status = models.StatusResolved
	require.NoError(t, l.Replace(c))

	assert.Empty(t, l.LockedParts("T-1"))
}

func TestReplaceUnknownCase(t *testing.T) {
	l := New()
	err := l.Replace(models.Case{ID: "ghost"})
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	l := New()
	l.Load(testCases())

	c, _ := l.Get("C-1")
	c.Defects[0].Part = "tampered"
	fresh, _ := l.Get("C-1")
	assert.Equal(t, "Socket B", fresh.Defects[0].Part)
}

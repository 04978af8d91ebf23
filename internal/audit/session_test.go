package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolcrib/internal/ledger"
	"toolcrib/internal/models"
	"toolcrib/internal/registry"
)

func testRegistry() *registry.Registry {
	r := registry.New()
	r.Load([]models.Asset{
		{ID: "T-1", Name: "Impact Wrench Kit", Zone: "Bay 1", Class: models.ClassToolbox,
			Quantity: 5, Available: 5, MonetaryValue: 450,
			Composition: []string{"Socket A", "Socket B", "Driver"}},
		{ID: "T-2", Name: "Claw Hammer", Zone: "Bay 2", Class: models.ClassPiece,
			Quantity: 10, Available: 8},
		{ID: "T-3", Name: "Angle Grinder", Zone: "Bay 1", Class: models.ClassPiece,
			Quantity: 3, Available: 3},
	})
	return r
}

func newTestSession(t *testing.T, led *ledger.Ledger) *Session {
	t.Helper()
	if led == nil {
		led = ledger.New()
	}
	s, err := NewSession("A-1", "EMP-001", "Pat Storekeeper", models.ZoneFullStore, testRegistry(), led)
	require.NoError(t, err)
	return s
}

func TestSessionZonesOrderedDistinct(t *testing.T) {
	s := newTestSession(t, nil)
	assert.Equal(t, []string{"Bay 1", "Bay 2"}, s.Zones())
	assert.Equal(t, "Bay 1", s.CurrentZone())
}

func TestSessionEmptyScope(t *testing.T) {
	_, err := NewSession("A-2", "EMP-001", "Pat", "Bay 9", testRegistry(), ledger.New())
	assert.Error(t, err)
}

func TestSightedQtyBounds(t *testing.T) {
	s := newTestSession(t, nil)
	assert.ErrorIs(t, s.SetSightedQty("T-2", -1), ErrQtyOutOfRange)
	assert.ErrorIs(t, s.SetSightedQty("T-2", 9), ErrQtyOutOfRange)
	assert.NoError(t, s.SetSightedQty("T-2", 8))
	assert.NoError(t, s.SetSightedQty("T-2", 0))
}

func TestShortfallInfersLostAndRestores(t *testing.T) {
	s := newTestSession(t, nil)

	require.NoError(t, s.SetSightedQty("T-2", 6))
	require.NoError(t, s.Verify("T-2"))
	f := findingFor(t, s, "T-2")
	assert.Equal(t, models.ConditionLost, f.Condition)
}

func TestRestoringQtyResetsLostToExcellent(t *testing.T) {
	s := newTestSession(t, nil)

	require.NoError(t, s.SetSightedQty("T-2", 6))
	require.NoError(t, s.SetSightedQty("T-2", 8))
	require.NoError(t, s.Verify("T-2"))
	f := findingFor(t, s, "T-2")
	assert.Equal(t, models.ConditionExcellent, f.Condition)
	assert.False(t, f.InVariance())
}

func TestDeclareDefectBounds(t *testing.T) {
	s := newTestSession(t, nil)

	assert.ErrorIs(t, s.DeclareDefect("T-2", models.ConditionDamaged, 0), ErrUnitsOutOfRange)
	assert.ErrorIs(t, s.DeclareDefect("T-2", models.ConditionDamaged, 9), ErrUnitsOutOfRange)
	assert.ErrorIs(t, s.DeclareDefect("T-2", models.ConditionGood, 1), ErrInvalidDeclaration)

	// A rejected declaration leaves the condition unset
	require.NoError(t, s.Verify("T-2"))
	f := findingFor(t, s, "T-2")
	assert.Equal(t, models.ConditionExcellent, f.Condition)
}

func TestDeclareDefectDamagedUnits(t *testing.T) {
	s := newTestSession(t, nil)

	require.NoError(t, s.DeclareDefect("T-2", models.ConditionDamaged, 2))
	require.NoError(t, s.Verify("T-2"))
	f := findingFor(t, s, "T-2")
	assert.Equal(t, models.ConditionDamaged, f.Condition)
	assert.Equal(t, 6, f.SightedQty)
	assert.True(t, f.InVariance())
}

func TestPartToggleCycle(t *testing.T) {
	s := newTestSession(t, nil)

	states := []models.PieceState{
		models.PiecePresent, models.PieceMissing, models.PieceDamaged,
		models.PiecePresent, models.PieceMissing,
	}
	for _, want := range states {
		got, err := s.TogglePart("T-1", "Socket B")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestToggleUnknownPart(t *testing.T) {
	s := newTestSession(t, nil)
	_, err := s.TogglePart("T-1", "Flux Capacitor")
	assert.ErrorIs(t, err, ErrUnknownPart)

	_, err = s.TogglePart("T-2", "Socket B")
	assert.ErrorIs(t, err, ErrNotComposite)
}

func TestLockedPartIsImmutable(t *testing.T) {
	led := ledger.New()
	led.Load([]models.Case{
		{ID: "C-1", ToolID: "T-1", IssuanceType: models.IssuanceOutstanding,
			Status:  models.StatusPending,
			Defects: []models.DefectTag{{Part: "Socket B", Defect: models.PieceMissing}}},
	})
	s := newTestSession(t, led)

	_, err := s.TogglePart("T-1", "Socket B")
	var lockedErr *LockedPartError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, "Socket B", lockedErr.Part)

	// The locked part renders as locked and carries no toggle state
	states, locked, err := s.PartStates("T-1")
	require.NoError(t, err)
	assert.True(t, locked["SOCKET B"])
	_, tracked := states["Socket B"]
	assert.False(t, tracked)
}

func TestMarkAllPresentSkipsLockedParts(t *testing.T) {
	led := ledger.New()
	led.Load([]models.Case{
		{ID: "C-1", ToolID: "T-1", IssuanceType: models.IssuanceOutstanding,
			Status:  models.StatusPending,
			Defects: []models.DefectTag{{Part: "Socket B", Defect: models.PieceMissing}}},
	})
	s := newTestSession(t, led)

	require.NoError(t, s.MarkAllPresent("T-1"))
	states, locked, _ := s.PartStates("T-1")
	assert.Equal(t, models.PiecePresent, states["Socket A"])
	assert.Equal(t, models.PiecePresent, states["Driver"])
	assert.True(t, locked["SOCKET B"])

	require.NoError(t, s.Verify("T-1"))
	f := findingFor(t, s, "T-1")
	assert.Equal(t, models.ConditionExcellent, f.Condition)
}

func TestDerivedConditionOverridesForComposite(t *testing.T) {
	s := newTestSession(t, nil)

	// A bulk mark-all-present commits Excellent, but toggling a part back to
	// Missing re-derives the condition regardless.
	require.NoError(t, s.MarkAllPresent("T-1"))
	_, err := s.TogglePart("T-1", "Socket B")
	require.NoError(t, err)

	require.NoError(t, s.Verify("T-1"))
	f := findingFor(t, s, "T-1")
	assert.Equal(t, models.ConditionLost, f.Condition)
	assert.Equal(t, []models.DefectTag{{Part: "Socket B", Defect: models.PieceMissing}}, f.Defects)
}

func TestVerifyCompositeRequiresAllPartsSet(t *testing.T) {
	s := newTestSession(t, nil)
	_, err := s.TogglePart("T-1", "Socket A")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Verify("T-1"), ErrPartsUnset)
}

func TestZoneAdvanceGate(t *testing.T) {
	s := newTestSession(t, nil)

	_, err := s.NextZone()
	var unverified *UnverifiedError
	require.ErrorAs(t, err, &unverified)
	assert.Equal(t, []string{"T-1", "T-3"}, unverified.IDs, "gate reports exactly the unverified ids in the current zone")

	require.NoError(t, s.MarkAllPresent("T-1"))
	require.NoError(t, s.Verify("T-1"))
	require.NoError(t, s.Verify("T-3"))
	zone, err := s.NextZone()
	require.NoError(t, err)
	assert.Equal(t, "Bay 2", zone)

	require.NoError(t, s.Verify("T-2"))
	_, err = s.NextZone()
	assert.ErrorIs(t, err, ErrNoFurtherZones)
}

func TestFinalizeGate(t *testing.T) {
	s := newTestSession(t, nil)

	_, err := s.Finalize([]byte("sig"))
	var unverified *UnverifiedError
	require.ErrorAs(t, err, &unverified)
	assert.Equal(t, []string{"T-1", "T-2", "T-3"}, unverified.IDs, "finalize reports the whole unverified set")

	require.NoError(t, s.MarkAllPresent("T-1"))
	require.NoError(t, s.Verify("T-1"))
	require.NoError(t, s.Verify("T-2"))
	require.NoError(t, s.Verify("T-3"))

	_, err = s.Finalize(nil)
	assert.ErrorIs(t, err, ErrSignatureRequired)

	findings, err := s.Finalize([]byte("signature-blob"))
	require.NoError(t, err)
	assert.Len(t, findings, 3, "non-variance assets still emit findings")
	for _, f := range findings {
		assert.False(t, f.InVariance())
		assert.Empty(t, f.ResponsibleStaff, "clean findings carry empty liability fields")
	}
	assert.Equal(t, []byte("signature-blob"), s.Signature())
}

func TestFinalizeRequiresVarianceNotes(t *testing.T) {
	s := newTestSession(t, nil)

	require.NoError(t, s.MarkAllPresent("T-1"))
	require.NoError(t, s.Verify("T-1"))
	require.NoError(t, s.Verify("T-3"))
	require.NoError(t, s.SetSightedQty("T-2", 5))
	require.NoError(t, s.Verify("T-2"))

	_, err := s.Finalize([]byte("sig"))
	var incomplete *IncompleteVarianceError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"T-2"}, incomplete.IDs)

	require.NoError(t, s.SetNote("T-2", "three hammers unaccounted for"))
	findings, err := s.Finalize([]byte("sig"))
	require.NoError(t, err)

	f := pick(findings, "T-2")
	assert.True(t, f.InVariance())
	assert.Equal(t, "EMP-001", f.ResponsibleStaff, "responsibility defaults to the operator")
	assert.Equal(t, "Pat Storekeeper", f.ResponsibleName)
}

func TestFinalizeIsTerminal(t *testing.T) {
	s := newTestSession(t, nil)
	require.NoError(t, s.MarkAllPresent("T-1"))
	require.NoError(t, s.Verify("T-1"))
	require.NoError(t, s.Verify("T-2"))
	require.NoError(t, s.Verify("T-3"))

	_, err := s.Finalize([]byte("sig"))
	require.NoError(t, err)

	_, err = s.Finalize([]byte("sig"))
	assert.ErrorIs(t, err, ErrSessionFinalized)
	assert.ErrorIs(t, s.SetSightedQty("T-2", 4), ErrSessionFinalized)
}

// findingFor finalizes a fully-verified copy of the walkthrough and plucks
// one finding out for inspection.
func findingFor(t *testing.T, s *Session, assetID string) models.Finding {
	t.Helper()
	for _, id := range []string{"T-1", "T-2", "T-3"} {
		if id == "T-1" {
			// parts may be partially toggled; fill the rest
			states, _, err := s.PartStates("T-1")
			require.NoError(t, err)
			for part, st := range states {
				if st == models.PieceUnset {
					_, err := s.TogglePart("T-1", part)
					require.NoError(t, err)
				}
			}
		}
		require.NoError(t, s.Verify(id))
	}
	for _, id := range []string{"T-1", "T-2", "T-3"} {
		require.NoError(t, s.SetNote(id, "audit note"))
	}
	findings, err := s.Finalize([]byte("sig"))
	require.NoError(t, err)
	return pick(findings, assetID)
}

func pick(findings []models.Finding, assetID string) models.Finding {
	for _, f := range findings {
		if f.AssetID == assetID {
			return f
		}
	}
	return models.Finding{}
}

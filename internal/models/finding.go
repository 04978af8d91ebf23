package models

// PieceState represents the audited status of one composition part
type PieceState string

const (
	PieceUnset   PieceState = ""
	PiecePresent PieceState = "Present"
	PieceMissing PieceState = "Missing"
	PieceDamaged PieceState = "Damaged"
)

// Finding is the per-asset outcome of one audit session. Findings live only
// for the duration of a session: the reconciliation engine folds them into
// asset, case and maintenance state and they are never persisted themselves.
type Finding struct {
	AssetID          string
	ExpectedQty      int
	SightedQty       int
	Condition        Condition
	PieceStatus      map[string]PieceState
	ResponsibleStaff string
	ResponsibleName  string
	Notes            string
	Defects          []DefectTag
}

// InVariance reports whether the finding describes a discrepancy that must
// raise a case.
func (f *Finding) InVariance() bool {
	return f.SightedQty < f.ExpectedQty ||
		f.Condition == ConditionLost || f.Condition == ConditionDamaged
}

// DeriveCondition computes a composite asset's condition from its part
// statuses. Lost wins over Damaged; a kit with every tracked part present is
// Excellent. This derivation overrides any directly chosen condition while
// part tracking exists.
func DeriveCondition(pieces map[string]PieceState) Condition {
	anyDamaged := false
	for _, st := range pieces {
		switch st {
		case PieceMissing:
			return ConditionLost
		case PieceDamaged:
			anyDamaged = true
		}
	}
	if anyDamaged {
		return ConditionDamaged
	}
	return ConditionExcellent
}

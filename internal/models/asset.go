package models

import (
	"strings"
	"time"
)

// Asset represents a trackable store asset: a single tool, a set, or a
// toolbox composed of named parts.
type Asset struct {
	ID            string
	Name          string
	Category      string
	Zone          string
	Class         AssetClass
	Quantity      int
	Available     int
	Condition     Condition
	Composition   []string
	MonetaryValue float64
	LastVerified  time.Time
}

// AssetClass represents the structural class of an asset
type AssetClass string

const (
	ClassPiece   AssetClass = "Piece"
	ClassSet     AssetClass = "Set"
	ClassToolbox AssetClass = "Toolbox"
)

// Condition represents the physical condition of an asset
type Condition string

const (
	ConditionExcellent   Condition = "Excellent"
	ConditionGood        Condition = "Good"
	ConditionDamaged     Condition = "Damaged"
	ConditionLost        Condition = "Lost"
	ConditionMaintenance Condition = "Maintenance"
)

// ZoneFullStore selects every zone in the registry when opening an audit.
const ZoneFullStore = "Full Store"

// IsComposite reports whether the asset is tracked part-by-part.
func (a *Asset) IsComposite() bool {
	return a.Class == ClassSet || a.Class == ClassToolbox
}

// CanonicalParts returns the composition with any persisted defect
// annotations stripped, restoring the original part names.
func (a *Asset) CanonicalParts() []string {
	parts := make([]string, 0, len(a.Composition))
	for _, p := range a.Composition {
		parts = append(parts, CanonicalPartName(p))
	}
	return parts
}

// CanonicalPartName strips a "(MISSING)" or "(DAMAGED)" annotation from a
// composition entry.
func CanonicalPartName(part string) string {
	p := strings.TrimSuffix(part, " (MISSING)")
	p = strings.TrimSuffix(p, " (DAMAGED)")
	return strings.TrimSpace(p)
}

// NormalizePartName is the comparison key for part names: trimmed and
// upper-cased.
func NormalizePartName(part string) string {
	return strings.ToUpper(strings.TrimSpace(CanonicalPartName(part)))
}

package models

import "time"

// Case represents a usage ledger entry: either a standard issuance or an
// outstanding variance raised by audit reconciliation.
type Case struct {
	ID                string
	ToolID            string
	StaffID           string
	StaffName         string
	Quantity          int
	IssuanceType      IssuanceType
	IsReturned        bool
	ConditionOnReturn Condition
	Stage             EscalationStage
	Status            EscalationStatus
	GraceExpiry       *time.Time
	MonetaryValue     float64
	Notes             string
	Defects           []DefectTag
	Resolution        ResolutionPathway
	History           []ActionEntry
}

// IssuanceType distinguishes routine checkouts from audit variances
type IssuanceType string

const (
	IssuanceStandard    IssuanceType = "Standard"
	IssuanceOutstanding IssuanceType = "Outstanding"
)

// EscalationStage represents the organizational tier responsible for a case
type EscalationStage string

const (
	StageStore      EscalationStage = "Store"
	StageSupervisor EscalationStage = "Supervisor"
	StageManager    EscalationStage = "Manager"
)

// EscalationStatus represents the lifecycle state of a case
type EscalationStatus string

const (
	StatusPending       EscalationStatus = "Pending"
	StatusInGracePeriod EscalationStatus = "In-Grace-Period"
	StatusEscalatedToHR EscalationStatus = "Escalated-to-HR"
	StatusResolved      EscalationStatus = "Resolved"
)

// ResolutionPathway is the single closeout route chosen when HR resolves a
// case
type ResolutionPathway string

const (
	ResolutionPayrollDeduction ResolutionPathway = "payroll_deduction"
	ResolutionRestitution      ResolutionPathway = "staff_restitution"
	ResolutionDisciplinary     ResolutionPathway = "disciplinary_action"
	ResolutionWaiver           ResolutionPathway = "operational_waiver"
)

// ActionEntry is one append-only record in a case's action history.
type ActionEntry struct {
	Stage     EscalationStage
	Actor     string
	Action    string
	Timestamp time.Time
	Notes     string
}

// Unresolved reports whether the case is still a live variance.
func (c *Case) Unresolved() bool {
	return c.IssuanceType == IssuanceOutstanding && !c.IsReturned && c.Status != StatusResolved
}

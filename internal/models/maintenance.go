package models

import "time"

// MaintenanceRecord represents a repair ticket spawned by a damaged audit
// finding or a damaged case recovery.
type MaintenanceRecord struct {
	ID               string
	ToolID           string
	ReportedBy       string
	ReportedDate     time.Time
	BreakdownContext string
	Status           MaintenanceStatus
	AssignedStaffID  string
	AssignedStaff    string
}

// MaintenanceStatus represents the repair ticket lifecycle
type MaintenanceStatus string

const (
	MaintenanceStaged     MaintenanceStatus = "staged"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
)

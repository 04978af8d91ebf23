package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"toolcrib/internal/ledger"
	"toolcrib/internal/maintenance"
	"toolcrib/internal/metrics"
	"toolcrib/internal/models"
	"toolcrib/internal/registry"
	"toolcrib/internal/store"
)

// Action names the operator-triggered transitions on a liability case.
type Action string

const (
	ActionGrantGrace        Action = "grant_grace"
	ActionEscalateToManager Action = "escalate_to_manager"
	ActionHREscalate        Action = "hr_escalate"
	ActionFurtherSearch     Action = "request_further_search"
	ActionCancelCase        Action = "cancel_case"
	ActionVerify            Action = "verify"
	ActionHRCloseout        Action = "hr_closeout"
)

// GracePeriod is the self-remediation window granted to a custodian.
const GracePeriod = 30 * 24 * time.Hour

// Request carries the parameters of one transition. ConditionOnReturn is
// read only by verify; Resolution and Verdict only by hr_closeout.
type Request struct {
	Action            Action
	Notes             string
	ConditionOnReturn models.Condition
	Resolution        models.ResolutionPathway
	Verdict           string
}

// VerdictDrafter produces the forensic verdict stamped into a case at HR
// closeout. Optional; a nil drafter falls back to a deterministic template.
type VerdictDrafter interface {
	Draft(ctx context.Context, c models.Case, pathway models.ResolutionPathway) (string, error)
}

// Machine advances ledger cases through their escalation lifecycle. Every
// applied transition appends exactly one action history entry; Resolved is
// terminal and any further action is rejected without touching the history.
type Machine struct {
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Queue    *maintenance.Queue
	Store    store.RecordStore
	Drafter  VerdictDrafter

	Now   func() time.Time
	NewID func() string
}

var (
	ErrCaseResolved      = fmt.Errorf("case already resolved")
	ErrAlreadyAtHR       = fmt.Errorf("case already escalated to HR")
	ErrNotAtHR           = fmt.Errorf("case has not been escalated to HR")
	ErrUnknownAction     = fmt.Errorf("unknown escalation action")
	ErrInvalidResolution = fmt.Errorf("closeout requires exactly one valid resolution pathway")
)

// NewMachine wires a state machine over the shared state.
func NewMachine(reg *registry.Registry, led *ledger.Ledger, queue *maintenance.Queue, st store.RecordStore) *Machine {
	return &Machine{
		Registry: reg,
		Ledger:   led,
		Queue:    queue,
		Store:    st,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// Apply runs one transition against a case and returns the updated case.
func (m *Machine) Apply(ctx context.Context, actor models.Actor, caseID string, req Request) (models.Case, error) {
	c, err := m.Ledger.Get(caseID)
	if err != nil {
		return models.Case{}, err
	}
	if c.Status == models.StatusResolved {
		return models.Case{}, fmt.Errorf("%w: %s", ErrCaseResolved, caseID)
	}

	stageBefore := c.Stage
	now := m.Now()

	switch req.Action {
	case ActionGrantGrace:
		expiry := now.Add(GracePeriod)
		c.Status = models.StatusInGracePeriod
		c.GraceExpiry = &expiry

	case ActionEscalateToManager:
		c.Stage = models.StageManager
		c.Status = models.StatusPending

	case ActionHREscalate:
		if c.Status == models.StatusEscalatedToHR {
			return models.Case{}, fmt.Errorf("%w: %s", ErrAlreadyAtHR, caseID)
		}
		c.Status = models.StatusEscalatedToHR

	case ActionFurtherSearch:
		c.Stage = models.StageSupervisor
		c.Status = models.StatusPending

	case ActionCancelCase:
		c.Status = models.StatusResolved

	case ActionVerify:
		if err := m.recover(ctx, actor, &c, req, now); err != nil {
			return models.Case{}, err
		}

	case ActionHRCloseout:
		if c.Status != models.StatusEscalatedToHR {
			return models.Case{}, fmt.Errorf("%w: %s is %s", ErrNotAtHR, caseID, c.Status)
		}
		if !validResolution(req.Resolution) {
			return models.Case{}, fmt.Errorf("%w: got %q", ErrInvalidResolution, req.Resolution)
		}
		verdict := req.Verdict
		if verdict == "" {
			verdict = m.draftVerdict(ctx, c, req.Resolution)
		}
		c.Resolution = req.Resolution
		if c.Notes != "" {
			c.Notes += " "
		}
		c.Notes += "Verdict: " + verdict
		c.Status = models.StatusResolved

	default:
		return models.Case{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	c.History = append(c.History, models.ActionEntry{
		Stage:     stageBefore,
		Actor:     actor.Name,
		Action:    string(req.Action),
		Timestamp: now,
		Notes:     req.Notes,
	})

	if err := m.Ledger.Replace(c); err != nil {
		return models.Case{}, err
	}
	metrics.CaseTransitions.WithLabelValues(string(req.Action)).Inc()
	open := 0
	for _, k := range m.Ledger.All() {
		if k.Unresolved() {
			open++
		}
	}
	metrics.OpenCases.Set(float64(open))
	store.BestEffortUpsert(ctx, m.Store, store.TableCases, c.ID, store.EncodeCase(c))
	return c, nil
}

// recover applies the physical-recovery branches of verify. A damaged
// return parks the asset in maintenance without touching availability; any
// other return restores availability up to the owned quantity. Both branches
// clear the asset's persisted defect annotations.
func (m *Machine) recover(ctx context.Context, actor models.Actor, c *models.Case, req Request, now time.Time) error {
	asset, err := m.Registry.Get(c.ToolID)
	if err != nil {
		return err
	}

	c.Status = models.StatusResolved
	c.IsReturned = true
	c.ConditionOnReturn = req.ConditionOnReturn

	if req.ConditionOnReturn == models.ConditionDamaged {
		if err := m.Registry.ApplyReconciliation(c.ToolID, asset.Available, models.ConditionMaintenance); err != nil {
			return err
		}
		ticket := models.MaintenanceRecord{
			ID:               m.NewID(),
			ToolID:           c.ToolID,
			ReportedBy:       actor.Name,
			ReportedDate:     now,
			BreakdownContext: fmt.Sprintf("Recovered damaged from case %s; custodian %s", c.ID, c.StaffName),
			Status:           models.MaintenanceStaged,
		}
		m.Queue.Add(ticket)
		metrics.MaintenanceSpawned.Inc()
		store.BestEffortUpsert(ctx, m.Store, store.TableMaintenance, ticket.ID, store.EncodeMaintenance(ticket))
	} else {
		restored := asset.Available + c.Quantity
		if restored > asset.Quantity {
			restored = asset.Quantity
		}
		if err := m.Registry.ApplyReconciliation(c.ToolID, restored, models.ConditionGood); err != nil {
			return err
		}
	}

	if err := m.Registry.StripDefectTags(c.ToolID); err != nil {
		return err
	}
	updated, err := m.Registry.Get(c.ToolID)
	if err != nil {
		return err
	}
	store.BestEffortUpsert(ctx, m.Store, store.TableAssets, updated.ID, store.EncodeAsset(updated))
	return nil
}

func (m *Machine) draftVerdict(ctx context.Context, c models.Case, pathway models.ResolutionPathway) string {
	if m.Drafter != nil {
		if v, err := m.Drafter.Draft(ctx, c, pathway); err == nil && v != "" {
			return v
		}
	}
	return fmt.Sprintf("Case %s closed via %s; custodian %s, liability %d unit(s) valued %.2f.",
		c.ID, pathway, c.StaffName, c.Quantity, c.MonetaryValue)
}

func validResolution(r models.ResolutionPathway) bool {
	switch r {
	case models.ResolutionPayrollDeduction, models.ResolutionRestitution,
		models.ResolutionDisciplinary, models.ResolutionWaiver:
		return true
	}
	return false
}

package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"toolcrib/internal/ledger"
	"toolcrib/internal/maintenance"
	"toolcrib/internal/metrics"
	"toolcrib/internal/models"
	"toolcrib/internal/registry"
	"toolcrib/internal/store"
)

// Engine folds a completed audit session's findings into registry, ledger
// and maintenance state exactly once. The session's UI-level part locking is
// advisory; the engine re-validates every defect against the ledger's
// locked-part index itself, so a batch or programmatic caller cannot raise a
// duplicate case.
type Engine struct {
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Queue    *maintenance.Queue
	Store    store.RecordStore

	Now   func() time.Time
	NewID func() string
}

// Result reports what one commit produced.
type Result struct {
	VerifiedAssets     []string
	CasesCreated       []models.Case
	MaintenanceCreated []models.MaintenanceRecord
	SkippedAssets      []string
}

var ErrSignatureRequired = fmt.Errorf("cannot reconcile without a captured signature")

// NewEngine wires an engine over the shared state.
func NewEngine(reg *registry.Registry, led *ledger.Ledger, queue *maintenance.Queue, st store.RecordStore) *Engine {
	return &Engine{
		Registry: reg,
		Ledger:   led,
		Queue:    queue,
		Store:    st,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// Commit reconciles a finalized session. Each finding applies fully or not
// at all; a finding that fails leaves every other finding's mutations in
// place and is reported in SkippedAssets. Store writes are best-effort and
// never roll back local state.
func (e *Engine) Commit(ctx context.Context, actor models.Actor, findings []models.Finding, signature []byte) (Result, error) {
	if len(signature) == 0 {
		return Result{}, ErrSignatureRequired
	}
	var res Result
	now := e.Now()
	for _, f := range findings {
		if err := e.apply(ctx, actor, f, now, &res); err != nil {
			log.Printf("reconcile: skipping asset %s: %v", f.AssetID, err)
			res.SkippedAssets = append(res.SkippedAssets, f.AssetID)
		}
	}
	metrics.OpenCases.Set(float64(openCaseCount(e.Ledger)))
	return res, nil
}

func (e *Engine) apply(ctx context.Context, actor models.Actor, f models.Finding, now time.Time, res *Result) error {
	asset, err := e.Registry.Get(f.AssetID)
	if err != nil {
		return err
	}

	if !f.InVariance() {
		return e.touchVerified(ctx, f.AssetID, now, res, "clean")
	}

	// Authoritative re-check: any part already covered by an unresolved
	// case is dropped from this finding.
	locked := e.Ledger.LockedParts(f.AssetID)
	var newDefects []models.DefectTag
	for _, t := range f.Defects {
		if locked[models.NormalizePartName(t.Part)] {
			continue
		}
		newDefects = append(newDefects, t)
	}

	shortfall := f.ExpectedQty - f.SightedQty
	qty := shortfall
	if asset.IsComposite() && len(newDefects) > 0 {
		qty = len(newDefects)
	}
	if qty <= 0 {
		// Every implicated part was already escalated and there is no
		// quantity shortfall left to raise; the audit still counts.
		return e.touchVerified(ctx, f.AssetID, now, res, "duplicate")
	}

	c := models.Case{
		ID:            e.NewID(),
		ToolID:        f.AssetID,
		StaffID:       f.ResponsibleStaff,
		StaffName:     f.ResponsibleName,
		Quantity:      qty,
		IssuanceType:  models.IssuanceOutstanding,
		Stage:         models.StageSupervisor,
		Status:        models.StatusPending,
		MonetaryValue: asset.MonetaryValue,
		Notes:         f.Notes,
		Defects:       newDefects,
	}

	if err := e.Registry.ApplyReconciliation(f.AssetID, f.SightedQty, f.Condition); err != nil {
		return err
	}
	if len(newDefects) > 0 {
		if err := e.Registry.AnnotateDefects(f.AssetID, newDefects); err != nil {
			return err
		}
	}
	if err := e.Registry.TouchVerified(f.AssetID, now); err != nil {
		return err
	}
	e.Ledger.Append(c)
	res.CasesCreated = append(res.CasesCreated, c)
	res.VerifiedAssets = append(res.VerifiedAssets, f.AssetID)
	metrics.FindingsReconciled.WithLabelValues("variance").Inc()

	if f.Condition == models.ConditionDamaged {
		ticket := models.MaintenanceRecord{
			ID:               e.NewID(),
			ToolID:           f.AssetID,
			ReportedBy:       actor.Name,
			ReportedDate:     now,
			BreakdownContext: fmt.Sprintf("Audit damage finding; custodian %s. %s", f.ResponsibleName, f.Notes),
			Status:           models.MaintenanceStaged,
		}
		e.Queue.Add(ticket)
		res.MaintenanceCreated = append(res.MaintenanceCreated, ticket)
		metrics.MaintenanceSpawned.Inc()
		store.BestEffortUpsert(ctx, e.Store, store.TableMaintenance, ticket.ID, store.EncodeMaintenance(ticket))
	}

	updated, err := e.Registry.Get(f.AssetID)
	if err != nil {
		return err
	}
	store.BestEffortUpsert(ctx, e.Store, store.TableAssets, updated.ID, store.EncodeAsset(updated))
	store.BestEffortUpsert(ctx, e.Store, store.TableCases, c.ID, store.EncodeCase(c))
	return nil
}

func (e *Engine) touchVerified(ctx context.Context, assetID string, now time.Time, res *Result, outcome string) error {
	if err := e.Registry.TouchVerified(assetID, now); err != nil {
		return err
	}
	res.VerifiedAssets = append(res.VerifiedAssets, assetID)
	metrics.FindingsReconciled.WithLabelValues(outcome).Inc()
	a, err := e.Registry.Get(assetID)
	if err != nil {
		return err
	}
	store.BestEffortUpsert(ctx, e.Store, store.TableAssets, a.ID, store.EncodeAsset(a))
	return nil
}

func openCaseCount(led *ledger.Ledger) int {
	n := 0
	for _, c := range led.All() {
		if c.Unresolved() {
			n++
		}
	}
	return n
}

package audit

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"toolcrib/internal/ledger"
	"toolcrib/internal/models"
	"toolcrib/internal/registry"
)

// Session is a bounded, zone-by-zone walkthrough of a registry subset. One
// operator edits a session at a time; the mutex only guards against the API
// layer and a websocket reader observing it concurrently.
type Session struct {
	mu           sync.RWMutex
	ID           string
	OperatorID   string
	OperatorName string
	Scope        string
	StartedAt    time.Time

	zones     []string
	zoneIdx   int
	zoneOf    map[string]string
	order     []string
	assets    map[string]models.Asset
	locked    map[string]map[string]bool
	entries   map[string]*entry
	signature []byte
	finalized bool
}

// entry is the finding-in-progress for one asset.
type entry struct {
	verified        bool
	sighted         int
	sightedSet      bool
	condition       models.Condition
	conditionChosen bool
	defectUnits     int
	pieces          map[string]models.PieceState
	partOrder       []string
	responsibleID   string
	responsibleName string
	note            string
}

// UnverifiedError rejects a zone advance or finalize and carries the exact
// set of asset ids still awaiting verification.
type UnverifiedError struct {
	IDs []string
}

func (e *UnverifiedError) Error() string {
	return fmt.Sprintf("%d assets unverified: %v", len(e.IDs), e.IDs)
}

// IncompleteVarianceError rejects finalize when variance assets are missing
// their required free-text note.
type IncompleteVarianceError struct {
	IDs []string
}

func (e *IncompleteVarianceError) Error() string {
	return fmt.Sprintf("%d variance assets missing notes: %v", len(e.IDs), e.IDs)
}

// LockedPartError reports an attempted toggle on a part already covered by
// an unresolved case.
type LockedPartError struct {
	AssetID string
	Part    string
}

func (e *LockedPartError) Error() string {
	return fmt.Sprintf("part %q of asset %s is locked by an unresolved case", e.Part, e.AssetID)
}

var (
	ErrSessionFinalized   = fmt.Errorf("audit session already finalized")
	ErrSignatureRequired  = fmt.Errorf("a captured signature is required to finalize")
	ErrNoFurtherZones     = fmt.Errorf("no further zones in scope")
	ErrUnknownAsset       = fmt.Errorf("asset not in audit scope")
	ErrUnknownPart        = fmt.Errorf("part not in asset composition")
	ErrNotComposite       = fmt.Errorf("asset is not part-tracked")
	ErrComposite          = fmt.Errorf("asset is part-tracked; use part toggles")
	ErrQtyOutOfRange      = fmt.Errorf("sighted quantity out of range")
	ErrUnitsOutOfRange    = fmt.Errorf("unit count out of range")
	ErrInvalidDeclaration = fmt.Errorf("only Damaged or Lost may be declared")
	ErrPartsUnset         = fmt.Errorf("composite asset has unset parts")
)

// NewSession opens an audit over one zone or, with models.ZoneFullStore, the
// whole registry. Locked parts are snapshotted from the ledger at open; the
// reconciliation engine re-validates them at commit regardless.
func NewSession(id, operatorID, operatorName, scope string, reg *registry.Registry, led *ledger.Ledger) (*Session, error) {
	assets := reg.AssetsInZone(scope)
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets in scope %q", scope)
	}

	s := &Session{
		ID:           id,
		OperatorID:   operatorID,
		OperatorName: operatorName,
		Scope:        scope,
		StartedAt:    time.Now(),
		zoneOf:       make(map[string]string),
		assets:       make(map[string]models.Asset),
		locked:       make(map[string]map[string]bool),
		entries:      make(map[string]*entry),
	}

	seen := make(map[string]bool)
	for _, a := range assets {
		if !seen[a.Zone] {
			seen[a.Zone] = true
			s.zones = append(s.zones, a.Zone)
		}
	}
	sort.Strings(s.zones)

	for _, a := range assets {
		s.assets[a.ID] = a
		s.zoneOf[a.ID] = a.Zone
		s.order = append(s.order, a.ID)
		s.locked[a.ID] = led.LockedParts(a.ID)

		e := &entry{sighted: a.Available}
		if a.IsComposite() {
			e.pieces = make(map[string]models.PieceState)
			for _, part := range a.CanonicalParts() {
				if s.locked[a.ID][models.NormalizePartName(part)] {
					continue
				}
				e.pieces[part] = models.PieceUnset
				e.partOrder = append(e.partOrder, part)
			}
		}
		s.entries[a.ID] = e
	}
	return s, nil
}

// Zones returns the ordered distinct zones in scope.
func (s *Session) Zones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.zones...)
}

// CurrentZone returns the zone the walkthrough is currently in.
func (s *Session) CurrentZone() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zones[s.zoneIdx]
}

// SetSightedQty records the counted quantity for a plain asset, bounded to
// [0, available]. Lowering the count without an explicit condition
// declaration infers Lost; restoring the full count while Lost resets to
// Excellent.
func (s *Session) SetSightedQty(assetID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, e, err := s.lookup(assetID)
	if err != nil {
		return err
	}
	if a.IsComposite() {
		return fmt.Errorf("%w: %s", ErrComposite, assetID)
	}
	if qty < 0 || qty > a.Available {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrQtyOutOfRange, qty, a.Available)
	}
	e.sighted = qty
	e.sightedSet = true
	if qty < a.Available && !e.conditionChosen {
		e.condition = models.ConditionLost
	}
	if qty == a.Available && e.condition == models.ConditionLost {
		e.condition = models.ConditionExcellent
		e.conditionChosen = false
		e.defectUnits = 0
	}
	return nil
}

// DeclareDefect declares Damaged or Lost on a specific number of units of a
// plain asset, bounded to [1, available]. An invalid declaration mutates
// nothing, leaving the condition as it was.
func (s *Session) DeclareDefect(assetID string, cond models.Condition, units int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, e, err := s.lookup(assetID)
	if err != nil {
		return err
	}
	if a.IsComposite() {
		return fmt.Errorf("%w: %s", ErrComposite, assetID)
	}
	if cond != models.ConditionDamaged && cond != models.ConditionLost {
		return fmt.Errorf("%w: got %s", ErrInvalidDeclaration, cond)
	}
	if units < 1 || units > a.Available {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrUnitsOutOfRange, units, a.Available)
	}
	e.condition = cond
	e.conditionChosen = true
	e.defectUnits = units
	e.sighted = a.Available - units
	e.sightedSet = true
	return nil
}

// TogglePart cycles one composition part of a composite asset through
// unset, Present, Missing, Damaged and back to Present. Locked parts are
// never mutated.
func (s *Session) TogglePart(assetID, part string) (models.PieceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, e, err := s.lookup(assetID)
	if err != nil {
		return models.PieceUnset, err
	}
	if !a.IsComposite() {
		return models.PieceUnset, fmt.Errorf("%w: %s", ErrNotComposite, assetID)
	}
	canonical := models.CanonicalPartName(part)
	if s.locked[assetID][models.NormalizePartName(canonical)] {
		return models.PieceUnset, &LockedPartError{AssetID: assetID, Part: canonical}
	}
	st, ok := e.pieces[canonical]
	if !ok {
		return models.PieceUnset, fmt.Errorf("%w: %q", ErrUnknownPart, part)
	}
	switch st {
	case models.PieceUnset:
		st = models.PiecePresent
	case models.PiecePresent:
		st = models.PieceMissing
	case models.PieceMissing:
		st = models.PieceDamaged
	default:
		st = models.PiecePresent
	}
	e.pieces[canonical] = st
	e.condition = models.DeriveCondition(e.pieces)
	return st, nil
}

// MarkAllPresent sets every non-locked part of a composite asset to Present
// and commits condition Excellent.
func (s *Session) MarkAllPresent(assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, e, err := s.lookup(assetID)
	if err != nil {
		return err
	}
	if !a.IsComposite() {
		return fmt.Errorf("%w: %s", ErrNotComposite, assetID)
	}
	for part := range e.pieces {
		e.pieces[part] = models.PiecePresent
	}
	e.condition = models.ConditionExcellent
	return nil
}

// PartStates returns the current status of every non-locked part, plus the
// set of locked parts, for rendering.
func (s *Session) PartStates(assetID string) (map[string]models.PieceState, map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, e, err := s.lookup(assetID)
	if err != nil {
		return nil, nil, err
	}
	states := make(map[string]models.PieceState, len(e.pieces))
	for k, v := range e.pieces {
		states[k] = v
	}
	lockedSet := make(map[string]bool, len(s.locked[assetID]))
	for k := range s.locked[assetID] {
		lockedSet[k] = true
	}
	return states, lockedSet, nil
}

// AssignResponsible records the staff member liable for a variance.
func (s *Session) AssignResponsible(assetID, staffID, staffName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, e, err := s.lookup(assetID)
	if err != nil {
		return err
	}
	e.responsibleID = staffID
	e.responsibleName = staffName
	return nil
}

// SetNote records the free-text note required for a variance asset.
func (s *Session) SetNote(assetID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, e, err := s.lookup(assetID)
	if err != nil {
		return err
	}
	e.note = note
	return nil
}

// Verify marks an asset as physically checked. A composite asset cannot be
// verified while any non-locked part is still unset.
func (s *Session) Verify(assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, e, err := s.lookup(assetID)
	if err != nil {
		return err
	}
	if a.IsComposite() {
		for _, st := range e.pieces {
			if st == models.PieceUnset {
				return fmt.Errorf("%w: %s", ErrPartsUnset, assetID)
			}
		}
		e.condition = models.DeriveCondition(e.pieces)
	} else if e.condition == "" {
		e.condition = models.ConditionExcellent
	}
	e.verified = true
	return nil
}

// NextZone advances the walkthrough. It is rejected, with the exact
// offending id set, while any asset in the current zone is unverified.
func (s *Session) NextZone() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return "", ErrSessionFinalized
	}
	if ids := s.unverifiedIn(s.zones[s.zoneIdx]); len(ids) > 0 {
		return "", &UnverifiedError{IDs: ids}
	}
	if s.zoneIdx+1 >= len(s.zones) {
		return "", ErrNoFurtherZones
	}
	s.zoneIdx++
	return s.zones[s.zoneIdx], nil
}

// Finalize closes the session and emits one finding per asset. Every asset
// in scope must be verified, every variance asset must carry a note, and a
// signature artifact must be captured. Variance assets with no assigned
// staff default to the session operator.
func (s *Session) Finalize(signature []byte) ([]models.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return nil, ErrSessionFinalized
	}
	if ids := s.unverifiedIn(""); len(ids) > 0 {
		return nil, &UnverifiedError{IDs: ids}
	}
	if len(signature) == 0 {
		return nil, ErrSignatureRequired
	}

	var missingNotes []string
	for _, id := range s.order {
		if s.inVariance(id) && s.entries[id].note == "" {
			missingNotes = append(missingNotes, id)
		}
	}
	if len(missingNotes) > 0 {
		sort.Strings(missingNotes)
		return nil, &IncompleteVarianceError{IDs: missingNotes}
	}

	findings := make([]models.Finding, 0, len(s.order))
	for _, id := range s.order {
		findings = append(findings, s.buildFinding(id))
	}
	s.signature = append([]byte(nil), signature...)
	s.finalized = true
	return findings, nil
}

// Signature returns the captured signature artifact after finalization.
func (s *Session) Signature() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.signature...)
}

func (s *Session) buildFinding(id string) models.Finding {
	a := s.assets[id]
	e := s.entries[id]
	f := models.Finding{
		AssetID:     id,
		ExpectedQty: a.Available,
		SightedQty:  e.sighted,
		Condition:   e.condition,
		Notes:       e.note,
	}
	if a.IsComposite() {
		f.PieceStatus = make(map[string]models.PieceState, len(e.pieces))
		for part, st := range e.pieces {
			f.PieceStatus[part] = st
			if st == models.PieceMissing || st == models.PieceDamaged {
				f.Defects = append(f.Defects, models.DefectTag{Part: part, Defect: st})
			}
		}
		sort.Slice(f.Defects, func(i, j int) bool { return f.Defects[i].Part < f.Defects[j].Part })
	}
	if f.InVariance() {
		f.ResponsibleStaff = e.responsibleID
		f.ResponsibleName = e.responsibleName
		if f.ResponsibleStaff == "" {
			f.ResponsibleStaff = s.OperatorID
			f.ResponsibleName = s.OperatorName
		}
	}
	return f
}

// inVariance reports whether an asset's entry will raise a case: verified
// and either a quantity shortfall or a Lost/Damaged condition.
func (s *Session) inVariance(id string) bool {
	e := s.entries[id]
	if !e.verified {
		return false
	}
	a := s.assets[id]
	return e.sighted < a.Available ||
		e.condition == models.ConditionLost || e.condition == models.ConditionDamaged
}

// unverifiedIn returns unverified asset ids in the given zone, or in the
// whole scope when zone is empty. Always sorted so callers get a stable set.
func (s *Session) unverifiedIn(zone string) []string {
	var ids []string
	for _, id := range s.order {
		if zone != "" && s.zoneOf[id] != zone {
			continue
		}
		if !s.entries[id].verified {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Session) lookup(assetID string) (models.Asset, *entry, error) {
	if s.finalized {
		return models.Asset{}, nil, ErrSessionFinalized
	}
	a, ok := s.assets[assetID]
	if !ok {
		return models.Asset{}, nil, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	return a, s.entries[assetID], nil
}

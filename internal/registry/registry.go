package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"toolcrib/internal/models"
)

// Registry is the in-memory asset catalog. Assets are provisioned
// externally and loaded once; mutation goes through the reconciliation and
// recovery paths only.
type Registry struct {
	mu     sync.RWMutex
	assets map[string]*models.Asset
}

// ErrAssetNotFound is returned when an asset id is not in the catalog.
var ErrAssetNotFound = fmt.Errorf("asset not found")

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		assets: make(map[string]*models.Asset),
	}
}

// Load replaces the catalog contents.
func (r *Registry) Load(assets []models.Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets = make(map[string]*models.Asset, len(assets))
	for i := range assets {
		a := assets[i]
		r.assets[a.ID] = &a
	}
}

// Put inserts or replaces a single asset.
func (r *Registry) Put(a models.Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.ID] = &a
}

// Get returns a copy of the asset with the given id.
func (r *Registry) Get(id string) (models.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return models.Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return cloneAsset(a), nil
}

// AssetsInZone returns copies of every asset in the given zone, ordered by
// name. The ZoneFullStore sentinel selects the whole catalog.
func (r *Registry) AssetsInZone(zone string) []models.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Asset
	for _, a := range r.assets {
		if zone == models.ZoneFullStore || a.Zone == zone {
			out = append(out, cloneAsset(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Zones returns the distinct zones present in the catalog, sorted.
func (r *Registry) Zones() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var zones []string
	for _, a := range r.assets {
		if !seen[a.Zone] {
			seen[a.Zone] = true
			zones = append(zones, a.Zone)
		}
	}
	sort.Strings(zones)
	return zones
}

// ApplyReconciliation sets the asset's available count and condition.
// Available is clamped to [0, Quantity].
func (r *Registry) ApplyReconciliation(id string, newAvailable int, newCondition models.Condition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	if newAvailable < 0 {
		newAvailable = 0
	}
	if newAvailable > a.Quantity {
		newAvailable = a.Quantity
	}
	a.Available = newAvailable
	a.Condition = newCondition
	return nil
}

// TouchVerified advances the asset's last verified date.
func (r *Registry) TouchVerified(id string, when time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	a.LastVerified = when
	return nil
}

// AnnotateDefects rewrites the composition with persisted defect
// annotations for the given parts, e.g. "Socket B (MISSING)". Existing
// annotations are preserved unless a new defect replaces them.
func (r *Registry) AnnotateDefects(id string, tags []models.DefectTag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	byPart := make(map[string]models.PieceState, len(tags))
	for _, t := range tags {
		byPart[models.NormalizePartName(t.Part)] = t.Defect
	}
	for i, part := range a.Composition {
		canonical := models.CanonicalPartName(part)
		switch byPart[models.NormalizePartName(canonical)] {
		case models.PieceMissing:
			a.Composition[i] = canonical + " (MISSING)"
		case models.PieceDamaged:
			a.Composition[i] = canonical + " (DAMAGED)"
		}
	}
	return nil
}

// StripDefectTags restores every composition entry to its canonical part
// name. Called whenever a case against the asset reaches full recovery.
func (r *Registry) StripDefectTags(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	for i, part := range a.Composition {
		a.Composition[i] = models.CanonicalPartName(part)
	}
	return nil
}

// All returns a copy of every asset, ordered by name.
func (r *Registry) All() []models.Asset {
	return r.AssetsInZone(models.ZoneFullStore)
}

func cloneAsset(a *models.Asset) models.Asset {
	out := *a
	out.Composition = append([]string(nil), a.Composition...)
	return out
}

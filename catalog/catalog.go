// Package catalog maintains canonical landmark identity: display name,
// representative coordinates and match statistics, independent of how many
// reference photos back a landmark in the vector index.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// ErrUnknownLandmark indicates a landmark ID with no catalog entry.
// Index entries always reference existing catalog entries, so hitting this
// during resolution means an internal invariant was violated.
type ErrUnknownLandmark struct {
	ID model.LandmarkID
}

// Error returns the error message for an unknown landmark.
func (e *ErrUnknownLandmark) Error() string {
	return fmt.Sprintf("unknown landmark: %d", e.ID)
}

// Entry is one landmark in the catalog. Entries are created by Upsert only
// and never deleted during normal operation.
type Entry struct {
	ID             model.LandmarkID `json:"id"`
	DisplayName    string           `json:"display_name"`
	NormalizedName string           `json:"normalized_name"`
	Coordinates    *model.LatLng    `json:"coordinates,omitempty"`
	EntryCount     int              `json:"entry_count"`
	LastUpdated    time.Time        `json:"last_updated"`
}

// Catalog maps landmark IDs to canonical metadata. All mutating operations
// share one mutex: write volume is low (seeding and feedback only), so a
// single serialization point is simpler than per-name locking and still
// guarantees at most one entry per distinct name under concurrent first-use.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[model.LandmarkID]*Entry
	byName map[string]model.LandmarkID
	nextID model.LandmarkID

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		byID:   make(map[model.LandmarkID]*Entry),
		byName: make(map[string]model.LandmarkID),
		nextID: 1,
		now:    time.Now,
	}
}

// NormalizeName canonicalizes a landmark display name for identity lookup:
// trimmed, whitespace-split, Title_Cased and joined with underscores
// ("eiffel  tower" -> "Eiffel_Tower").
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	for i, w := range fields {
		lower := strings.ToLower(w)
		fields[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(fields, "_")
}

// Resolve returns the catalog entry for id.
func (c *Catalog) Resolve(id model.LandmarkID) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byID[id]
	if !ok {
		return Entry{}, &ErrUnknownLandmark{ID: id}
	}
	return *e, nil
}

// ResolveName returns the catalog entry registered under the
// case-normalized form of name.
func (c *Catalog) ResolveName(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byName[NormalizeName(name)]
	if !ok {
		return Entry{}, false
	}
	return *c.byID[id], true
}

// Upsert resolves a landmark by its case-normalized display name, creating
// it when absent. It is the only entry point that creates landmarks, and it
// is idempotent: repeated calls with the same name return the same ID and
// create at most one entry even under concurrent first-use.
//
// Coordinates are set only if the entry has none; an existing position is
// never overwritten by later calls.
func (c *Catalog) Upsert(displayName string, coords *model.LatLng) (model.LandmarkID, error) {
	normalized := NormalizeName(displayName)
	if normalized == "" {
		return 0, fmt.Errorf("catalog: empty display name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byName[normalized]; ok {
		e := c.byID[id]
		if e.Coordinates == nil && coords != nil {
			cc := *coords
			e.Coordinates = &cc
			e.LastUpdated = c.now()
		}
		return id, nil
	}

	id := c.nextID
	c.nextID++

	e := &Entry{
		ID:             id,
		DisplayName:    displayName,
		NormalizedName: normalized,
		EntryCount:     0,
		LastUpdated:    c.now(),
	}
	if coords != nil {
		cc := *coords
		e.Coordinates = &cc
	}

	c.byID[id] = e
	c.byName[normalized] = id

	return id, nil
}

// RecordMatch increments the entry count and refreshes the update time.
func (c *Catalog) RecordMatch(id model.LandmarkID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byID[id]
	if !ok {
		return &ErrUnknownLandmark{ID: id}
	}
	e.EntryCount++
	e.LastUpdated = c.now()
	return nil
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// List returns all entries sorted by display name.
func (c *Catalog) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.byID))
	for _, e := range c.byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// Export returns a stable snapshot of the catalog state for persistence.
func (c *Catalog) Export() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.byID))
	for _, e := range c.byID {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})

	return Snapshot{
		NextID:  c.nextID,
		Entries: entries,
	}
}

// Restore replaces the catalog state from a snapshot. A snapshot that
// fails validation leaves the catalog unchanged.
func (c *Catalog) Restore(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	byID := make(map[model.LandmarkID]*Entry, len(s.Entries))
	byName := make(map[string]model.LandmarkID, len(s.Entries))
	nextID := s.NextID

	for i := range s.Entries {
		e := s.Entries[i]
		byID[e.ID] = &e
		byName[e.NormalizedName] = e.ID
		if e.ID >= nextID {
			nextID = e.ID + 1
		}
	}
	if nextID == 0 {
		nextID = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = byID
	c.byName = byName
	c.nextID = nextID
	return nil
}

// Snapshot is the persisted form of the catalog.
type Snapshot struct {
	NextID  model.LandmarkID `json:"next_id"`
	Entries []Entry          `json:"entries"`
}

// Validate checks that the snapshot can be restored: landmark IDs and
// normalized names must be unique. Callers restoring multiple structures
// together can validate before mutating any of them.
func (s Snapshot) Validate() error {
	byID := make(map[model.LandmarkID]struct{}, len(s.Entries))
	byName := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if _, dup := byID[e.ID]; dup {
			return fmt.Errorf("catalog: duplicate landmark id %d in snapshot", e.ID)
		}
		if _, dup := byName[e.NormalizedName]; dup {
			return fmt.Errorf("catalog: duplicate landmark name %q in snapshot", e.NormalizedName)
		}
		byID[e.ID] = struct{}{}
		byName[e.NormalizedName] = struct{}{}
	}
	return nil
}

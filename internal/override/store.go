// Package override holds the custom calendar records that adjust or extend
// the holiday providers: the in-memory snapshot store and its persistence
// backends.
package override

import (
	"context"
	"sort"
	"sync/atomic"

	appLog "bizday/internal/log"
	"bizday/internal/model"
)

// Snapshot is an immutable view of all override records. Values returned
// by Lookup share backing arrays with the snapshot and must not be modified.
type Snapshot struct {
	records map[string]model.Override
}

// NewSnapshot copies records into a new snapshot.
func NewSnapshot(records map[string]model.Override) *Snapshot {
	m := make(map[string]model.Override, len(records))
	for id, o := range records {
		m[id] = o
	}
	return &Snapshot{records: m}
}

// Lookup returns the record stored under id. Identifiers match exactly.
func (s *Snapshot) Lookup(id string) (model.Override, bool) {
	if s == nil {
		return model.Override{}, false
	}
	o, ok := s.records[id]
	return o, ok
}

// Has reports whether id has a record.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.Lookup(id)
	return ok
}

// IDs returns the record identifiers in ascending order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Store publishes the current Snapshot. Readers take one snapshot per
// operation; reloads install a whole new snapshot and never touch the old.
type Store struct {
	persistence Persistence
	current     atomic.Pointer[Snapshot]
	generation  atomic.Uint64
}

// NewStore creates a store with an empty snapshot. Call Reload to populate it.
func NewStore(p Persistence) *Store {
	s := &Store{persistence: p}
	s.current.Store(NewSnapshot(nil))
	return s
}

// Snapshot returns the snapshot installed at the time of the call.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Generation increases by one on every installed snapshot. Callers use it
// to invalidate data derived from an older snapshot.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Replace installs snap directly.
func (s *Store) Replace(snap *Snapshot) {
	if snap == nil {
		snap = NewSnapshot(nil)
	}
	s.current.Store(snap)
	s.generation.Add(1)
}

// Reload reads every record from persistence and installs them as the new
// snapshot. On failure the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) error {
	records, err := s.persistence.Load(ctx)
	if err != nil {
		appLog.Error("override reload failed; keeping previous snapshot", err,
			"records", s.Snapshot().Len())
		return err
	}
	s.Replace(NewSnapshot(records))
	appLog.Info("overrides loaded", "records", len(records))
	return nil
}

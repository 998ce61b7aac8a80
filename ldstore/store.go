// Package ldstore provides a thread-safe, in-memory implementation of ldeval.DataProvider.
//
// It holds whatever flag and segment data the external data source (polling, streaming, or a test
// harness) last supplied; the evaluator only ever reads through it, and never mutates it.
package ldstore

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/launchdarkly/go-eval-engine/ldmodel"
)

// Store is an in-memory, concurrency-safe holder of feature flags and segments.
//
// Reads and writes are guarded by two independent RWMutexes (one per kind) rather than a single
// lock covering both maps, so that a flag read is never blocked behind a segment write and vice
// versa. Full-dataset replacement (Init) is funneled through a singleflight.Group so that if
// several goroutines race to push the same refreshed dataset, only one of them actually does the
// work; the others just wait for it and share the result.
type Store struct {
	flagsLock    sync.RWMutex
	flags        map[string]ldmodel.FeatureFlag
	segmentsLock sync.RWMutex
	segments     map[string]ldmodel.Segment

	initGroup singleflight.Group
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		flags:    make(map[string]ldmodel.FeatureFlag),
		segments: make(map[string]ldmodel.Segment),
	}
}

// GetFeatureFlag implements ldeval.DataProvider. A flag recorded as Deleted is treated as absent.
func (s *Store) GetFeatureFlag(key string) (ldmodel.FeatureFlag, bool) {
	s.flagsLock.RLock()
	defer s.flagsLock.RUnlock()
	f, ok := s.flags[key]
	if !ok || f.Deleted {
		return ldmodel.FeatureFlag{}, false
	}
	return f, true
}

// GetSegment implements ldeval.DataProvider. A segment recorded as Deleted is treated as absent.
func (s *Store) GetSegment(key string) (ldmodel.Segment, bool) {
	s.segmentsLock.RLock()
	defer s.segmentsLock.RUnlock()
	seg, ok := s.segments[key]
	if !ok || seg.Deleted {
		return ldmodel.Segment{}, false
	}
	return seg, true
}

// AllFlags returns a snapshot of every non-deleted flag currently in the store, keyed by flag key.
// Used by callers (such as AllFlagsState) that need to evaluate every known flag for a user rather
// than one flag at a time.
func (s *Store) AllFlags() map[string]ldmodel.FeatureFlag {
	s.flagsLock.RLock()
	defer s.flagsLock.RUnlock()
	result := make(map[string]ldmodel.FeatureFlag, len(s.flags))
	for key, flag := range s.flags {
		if !flag.Deleted {
			result[key] = flag
		}
	}
	return result
}

// Init atomically replaces the entire contents of the store. Concurrent calls with the same
// generation tag (tag) are collapsed into a single replacement via singleflight; callers that
// always pass a fresh tag (e.g. a payload ETag or sequence number) get normal independent
// replacement.
func (s *Store) Init(tag string, flags map[string]ldmodel.FeatureFlag, segments map[string]ldmodel.Segment) {
	_, _, _ = s.initGroup.Do(tag, func() (interface{}, error) {
		s.flagsLock.Lock()
		s.flags = flags
		s.flagsLock.Unlock()

		s.segmentsLock.Lock()
		s.segments = segments
		s.segmentsLock.Unlock()
		return nil, nil
	})
}

// UpsertFeatureFlag inserts or replaces a single flag, but only if item.Version is greater than
// any version already stored under the same key; this matches the update ordering guarantee the
// external data source is expected to provide, and makes the operation safe to call with
// out-of-order delivery. It reports whether the store was actually updated.
func (s *Store) UpsertFeatureFlag(item ldmodel.FeatureFlag) bool {
	s.flagsLock.Lock()
	defer s.flagsLock.Unlock()
	if existing, ok := s.flags[item.Key]; ok && existing.Version >= item.Version {
		return false
	}
	s.flags[item.Key] = item
	return true
}

// UpsertSegment inserts or replaces a single segment, with the same newer-version-wins semantics
// as UpsertFeatureFlag.
func (s *Store) UpsertSegment(item ldmodel.Segment) bool {
	s.segmentsLock.Lock()
	defer s.segmentsLock.Unlock()
	if existing, ok := s.segments[item.Key]; ok && existing.Version >= item.Version {
		return false
	}
	s.segments[item.Key] = item
	return true
}

// DeleteFeatureFlag replaces a flag with a deleted-tombstone record at the given version, using
// the same newer-version-wins semantics as UpsertFeatureFlag.
func (s *Store) DeleteFeatureFlag(key string, version int) bool {
	return s.UpsertFeatureFlag(ldmodel.FeatureFlag{Key: key, Version: version, Deleted: true})
}

// DeleteSegment replaces a segment with a deleted-tombstone record at the given version, using the
// same newer-version-wins semantics as UpsertSegment.
func (s *Store) DeleteSegment(key string, version int) bool {
	return s.UpsertSegment(ldmodel.Segment{Key: key, Version: version, Deleted: true})
}

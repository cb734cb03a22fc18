// Package wait provides a registry of outstanding per-zone predicate waits.
//
// Each zone id holds at most one wait. Arming a new wait for a zone silently
// replaces the previous one. The registry is not safe for concurrent use; it
// is owned by a single event loop.
package wait

import (
	"github.com/osa030/queuebot/internal/app/match"
)

// Snapshot is a zone state that can be matched structurally.
type Snapshot interface {
	Tree() any
}

type entry[S Snapshot] struct {
	pattern match.Pattern
	cont    func(S)
}

// Registry holds at most one (pattern, continuation) pair per zone id.
type Registry[S Snapshot] struct {
	entries map[string]entry[S]
}

// NewRegistry creates an empty registry.
func NewRegistry[S Snapshot]() *Registry[S] {
	return &Registry[S]{
		entries: make(map[string]entry[S]),
	}
}

// Arm registers a wait for zoneID, replacing any outstanding wait.
func (r *Registry[S]) Arm(zoneID string, pattern match.Pattern, cont func(S)) {
	r.entries[zoneID] = entry[S]{pattern: pattern, cont: cont}
}

// Check tests the outstanding wait for zoneID against snapshot. On a match the
// wait is removed before its continuation runs, so the continuation may arm a
// new wait for the same zone. Returns true if a continuation fired.
func (r *Registry[S]) Check(zoneID string, snapshot S) bool {
	e, ok := r.entries[zoneID]
	if !ok {
		return false
	}
	if !e.pattern.Matches(snapshot.Tree()) {
		return false
	}

	delete(r.entries, zoneID)
	if e.cont != nil {
		e.cont(snapshot)
	}
	return true
}

// Disarm discards the outstanding wait for zoneID. Returns true if one existed.
func (r *Registry[S]) Disarm(zoneID string) bool {
	if _, ok := r.entries[zoneID]; !ok {
		return false
	}
	delete(r.entries, zoneID)
	return true
}

// Pattern returns the outstanding pattern for zoneID.
func (r *Registry[S]) Pattern(zoneID string) (match.Pattern, bool) {
	e, ok := r.entries[zoneID]
	if !ok {
		return nil, false
	}
	return e.pattern, true
}

// Len returns the number of outstanding waits.
func (r *Registry[S]) Len() int {
	return len(r.entries)
}

// Package service is the venue operation state engine.  The managers in this
// package enforce the lifecycle and lock invariants against the Store and
// return the side effects of each mutation instead of performing them; the
// Engine applies those effects once the write has committed.
package service

import (
	"slices"

	"github.com/iliyamo/venue-operations/internal/notify"
)

// Effects are the post-commit consequences of one mutation: events to
// publish and venue-events whose caches must be dropped.
type Effects struct {
	Events           []notify.Event
	InvalidateEvents []uint64
}

func (e *Effects) emit(ev notify.Event) {
	e.Events = append(e.Events, ev)
}

func (e *Effects) invalidate(eventID uint64) {
	if !slices.Contains(e.InvalidateEvents, eventID) {
		e.InvalidateEvents = append(e.InvalidateEvents, eventID)
	}
}

// merge appends o to e, keeping invalidations unique.
func (e *Effects) merge(o Effects) {
	e.Events = append(e.Events, o.Events...)
	for _, id := range o.InvalidateEvents {
		e.invalidate(id)
	}
}

// Empty reports whether there is nothing to apply.
func (e Effects) Empty() bool {
	return len(e.Events) == 0 && len(e.InvalidateEvents) == 0
}

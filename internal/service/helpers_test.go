package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/notify"
)

var baseTime = time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)

// stepClock is a settable clock for expiry tests.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock { return &stepClock{now: baseTime} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// venue is a seeded venue-event: a VIP area with tables 1..3, an inactive
// bar area with table 10 and a second event with table 99.
type venue struct {
	store   *fakeStore
	eventID uint64
	layout  model.Layout
	vip     model.Area
	bar     model.Area
	t1      model.Table
	t2      model.Table
	t3      model.Table
	t10     model.Table
	other   model.Table
}

func seedVenue(t *testing.T) *venue {
	t.Helper()
	s := newFakeStore()
	v := &venue{store: s, eventID: 1}
	v.layout = s.addLayout(v.eventID)
	v.vip = s.addArea(v.layout.ID, "VIP", "vip", true, 1)
	v.bar = s.addArea(v.layout.ID, "Bar", "bar", false, 2)
	v.t1 = s.addTable(v.vip, "1", model.TableAvailable)
	v.t2 = s.addTable(v.vip, "2", model.TableAvailable)
	v.t3 = s.addTable(v.vip, "3", model.TableReserved)
	v.t10 = s.addTable(v.bar, "10", model.TableAvailable)

	otherLayout := s.addLayout(2)
	otherArea := s.addArea(otherLayout.ID, "Main", "main", true, 1)
	v.other = s.addTable(otherArea, "99", model.TableAvailable)
	return v
}

func ptr[T any](v T) *T { return &v }

func eventNames(fx Effects) []string {
	names := make([]string, 0, len(fx.Events))
	for _, ev := range fx.Events {
		names = append(names, ev.Name)
	}
	return names
}

// recordingBroker captures forwarded events.
type recordingBroker struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (b *recordingBroker) Publish(_ context.Context, ev notify.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBroker) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Name)
	}
	return out
}

func (b *recordingBroker) seqs() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint64, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Seq)
	}
	return out
}

var errStorage = errors.New("connection reset by peer")

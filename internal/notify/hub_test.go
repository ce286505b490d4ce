package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversInPublishOrder(t *testing.T) {
	t.Parallel()

	h := NewHub(nil, WithBuffer(16))
	a, err := h.Register(1, "a")
	require.NoError(t, err)
	b, err := h.Register(1, "b")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 2, h.Publish(Event{Name: TableUpdated, EventID: 1, ActorID: uint64(i)}))
	}

	for _, sub := range []*Subscription{a, b} {
		for i := 0; i < 10; i++ {
			ev := <-sub.C()
			assert.Equal(t, uint64(i), ev.ActorID)
			assert.Equal(t, uint64(i+1), ev.Seq)
		}
	}
}

func TestHubScopesByVenueEvent(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	one, err := h.Register(1, "one")
	require.NoError(t, err)
	two, err := h.Register(2, "two")
	require.NoError(t, err)

	h.Publish(Event{Name: TabOpened, EventID: 2})

	assert.Len(t, one.C(), 0)
	assert.Len(t, two.C(), 1)
	assert.Equal(t, 0, h.Publish(Event{Name: TabOpened, EventID: 99}))
}

func TestHubNoReplayForLateObservers(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	h.Publish(Event{Name: CardIssued, EventID: 1})

	late, err := h.Register(1, "late")
	require.NoError(t, err)
	assert.Len(t, late.C(), 0)
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	sub, err := h.Register(1, "x")
	require.NoError(t, err)

	_, err = h.Register(1, "x")
	assert.ErrorIs(t, err, ErrConnectionExists)

	h.Unregister("x")
	h.Unregister("x")
	_, open := <-sub.C()
	assert.False(t, open)
	assert.Equal(t, 0, h.Connections(1))
	assert.Equal(t, 0, h.Publish(Event{Name: TableUpdated, EventID: 1}))
}

func TestHubDropsWhenObserverLags(t *testing.T) {
	t.Parallel()

	h := NewHub(nil, WithBuffer(1))
	sub, err := h.Register(1, "slow")
	require.NoError(t, err)

	assert.Equal(t, 1, h.Publish(Event{Name: TableUpdated, EventID: 1}))
	assert.Equal(t, 0, h.Publish(Event{Name: TableUpdated, EventID: 1}))
	assert.Equal(t, uint64(1), sub.Dropped())
}

func TestHubConcurrentRegistration(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c-%d", i)
			if _, err := h.Register(7, id); err != nil {
				t.Error(err)
				return
			}
			h.Publish(Event{Name: TableUpdated, EventID: 7})
			if i%2 == 0 {
				h.Unregister(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, h.Connections(7))
}

func TestHubSequenceSurvivesReconnect(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	sub, err := h.Register(3, "first")
	require.NoError(t, err)
	h.Publish(Event{Name: TabOpened, EventID: 3})
	assert.Equal(t, uint64(1), (<-sub.C()).Seq)
	h.Unregister("first")

	h.Publish(Event{Name: TabClosed, EventID: 3})

	again, err := h.Register(3, "second")
	require.NoError(t, err)
	h.Publish(Event{Name: TabOpened, EventID: 3})
	assert.Equal(t, uint64(3), (<-again.C()).Seq, "gap shows the missed event")
	assert.Equal(t, 1, h.Connections(3))
}

func TestHubPublishStampedReturnsSequence(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	first, n := h.PublishStamped(Event{Name: TabOpened, EventID: 8})
	assert.Equal(t, 0, n)
	assert.Equal(t, uint64(1), first.Seq)
	second, _ := h.PublishStamped(Event{Name: TabClosed, EventID: 8})
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, TabClosed, second.Name)
}

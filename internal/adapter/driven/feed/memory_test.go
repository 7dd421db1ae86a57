package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

// collect gathers handler invocations so tests can wait on delivery.
type collect[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collect[T]) add(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, v)
}

func (c *collect[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// waitFor polls until cond holds or the timeout elapses.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestMemory_CreatedDelivery(t *testing.T) {
	m := NewMemory()
	got := &collect[model.Bookmark]{}

	sub, err := m.SubscribeCreated("user-1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	b := model.Bookmark{ID: "b1", OwnerID: "user-1", Title: "A", URL: "https://a.test"}
	require.NoError(t, m.PublishCreated(context.Background(), b))

	waitFor(t, func() bool { return len(got.snapshot()) == 1 })
	assert.Equal(t, b, got.snapshot()[0])
}

func TestMemory_DeletedDeliveryCarriesOnlyID(t *testing.T) {
	m := NewMemory()
	got := &collect[string]{}

	sub, err := m.SubscribeDeleted("user-1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, m.PublishDeleted(context.Background(), "user-1", "b1"))

	waitFor(t, func() bool { return len(got.snapshot()) == 1 })
	assert.Equal(t, "b1", got.snapshot()[0])
}

func TestMemory_OwnerIsolation(t *testing.T) {
	m := NewMemory()
	got := &collect[model.Bookmark]{}

	sub, err := m.SubscribeCreated("user-1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	other := model.Bookmark{ID: "b9", OwnerID: "user-2", Title: "X", URL: "https://x.test"}
	require.NoError(t, m.PublishCreated(context.Background(), other))

	mine := model.Bookmark{ID: "b1", OwnerID: "user-1", Title: "A", URL: "https://a.test"}
	require.NoError(t, m.PublishCreated(context.Background(), mine))

	waitFor(t, func() bool { return len(got.snapshot()) == 1 })
	assert.Equal(t, "b1", got.snapshot()[0].ID, "user-2 events must not leak into user-1's subscription")
}

func TestMemory_KindIsolation(t *testing.T) {
	m := NewMemory()
	created := &collect[model.Bookmark]{}
	deleted := &collect[string]{}

	csub, err := m.SubscribeCreated("user-1", created.add)
	require.NoError(t, err)
	defer csub.Close()

	dsub, err := m.SubscribeDeleted("user-1", deleted.add)
	require.NoError(t, err)
	defer dsub.Close()

	require.NoError(t, m.PublishDeleted(context.Background(), "user-1", "b1"))

	waitFor(t, func() bool { return len(deleted.snapshot()) == 1 })
	assert.Empty(t, created.snapshot(), "deleted events must not reach created subscribers")
}

func TestMemory_DeliveryOrder(t *testing.T) {
	m := NewMemory()
	got := &collect[string]{}

	sub, err := m.SubscribeDeleted("user-1", got.add)
	require.NoError(t, err)
	defer sub.Close()

	ids := []string{"b1", "b2", "b3", "b4", "b5"}
	for _, id := range ids {
		require.NoError(t, m.PublishDeleted(context.Background(), "user-1", id))
	}

	waitFor(t, func() bool { return len(got.snapshot()) == len(ids) })
	assert.Equal(t, ids, got.snapshot())
}

func TestMemory_CloseStopsDelivery(t *testing.T) {
	m := NewMemory()
	got := &collect[string]{}

	sub, err := m.SubscribeDeleted("user-1", got.add)
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "double close must be safe")

	require.NoError(t, m.PublishDeleted(context.Background(), "user-1", "b1"))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, got.snapshot())
}

package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

type recordingHandler struct {
	mu     sync.Mutex
	name   string
	events []shared.Event
	err    error
	done   chan struct{}
}

func newRecordingHandler(name string) *recordingHandler {
	return &recordingHandler{name: name, done: make(chan struct{}, 16)}
}

func (h *recordingHandler) Handle(event shared.Event) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	h.done <- struct{}{}
	return h.err
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func (h *recordingHandler) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for handler call %d of %d", i+1, n)
		}
	}
}

func syncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestEventBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	handler := newRecordingHandler("on-level-up")
	bus.Subscribe(shared.EventLevelUp, handler)

	event := shared.NewLevelUpEvent(userRef(), 1, 2, "Aprendiz", 150)
	require.NoError(t, bus.Publish(event))

	require.Equal(t, 1, handler.count())
	assert.Equal(t, shared.EventLevelUp, handler.events[0].EventType())
}

func TestEventBus_PublishSkipsOtherEventTypes(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	handler := newRecordingHandler("on-badge")
	bus.Subscribe(shared.EventBadgeEarned, handler)

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(userRef(), 1, 2, "Aprendiz", 150)))

	assert.Equal(t, 0, handler.count())
}

func TestEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	audit := newRecordingHandler("audit")
	bus.SubscribeAll(audit)

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(userRef(), 1, 2, "Aprendiz", 150)))
	require.NoError(t, bus.Publish(shared.NewLeaderboardRebuiltEvent("acme", 5)))

	assert.Equal(t, 2, audit.count())
}

func TestEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	failing := newRecordingHandler("broken")
	failing.err = errors.New("projection down")
	healthy := newRecordingHandler("healthy")

	bus.Subscribe(shared.EventLevelUp, failing)
	bus.Subscribe(shared.EventLevelUp, healthy)

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(userRef(), 1, 2, "Aprendiz", 150)))

	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count())
}

func TestEventBus_NilEvent(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewLeaderboardRebuiltEvent("acme", 0))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
}

func TestEventBus_AsyncDelivery(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)
	defer bus.Close()

	handler := newRecordingHandler("async")
	bus.Subscribe(shared.EventXPGained, handler)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewXPGainedEvent(userRef(), 10, 10*(i+1), "trade_win")))
	}

	handler.waitFor(t, 5)
	assert.Equal(t, 5, handler.count())
}

func TestEventBus_MetricsCountPublishes(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	handler := newRecordingHandler("ok")
	bus.Subscribe(shared.EventLevelUp, handler)

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(userRef(), 1, 2, "Aprendiz", 150)))

	snap := bus.Metrics().Snapshot()
	assert.EqualValues(t, 1, snap.TotalPublished)
	assert.EqualValues(t, 1, snap.TotalHandled)
	assert.EqualValues(t, 0, snap.TotalFailed)
}

func userRef() shared.UserRef {
	return shared.UserRef{TenantID: "acme", UserID: "u-alice"}
}

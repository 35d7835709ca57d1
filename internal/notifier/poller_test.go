package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/entity"
)

type stubLister struct {
	mu     sync.Mutex
	orders []entity.Order
	err    error
	calls  int
}

func (s *stubLister) List(context.Context) ([]entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.orders, nil
}

func (s *stubLister) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubLister) set(orders []entity.Order, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = orders
	s.err = err
}

func sampleOrder(id int64, status entity.OrderStatus) entity.Order {
	total := decimal.RequireFromString("12")
	return entity.Order{
		ID:         id,
		CustomerID: 1,
		Status:     status,
		SubTotal:   decimal.RequireFromString("10"),
		VAT:        decimal.RequireFromString("2"),
		Total:      total,
	}
}

func drain(t *testing.T, sub *Subscriber) []byte {
	t.Helper()
	select {
	case payload := <-sub.C():
		return payload
	default:
		return nil
	}
}

func TestPollBroadcastsOnlyOnChange(t *testing.T) {
	lister := &stubLister{orders: []entity.Order{sampleOrder(1, entity.StatusPlaced)}}
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe()
	defer sub.Close()

	poller := NewPoller(lister, hub, time.Second, zap.NewNop())

	require.NoError(t, poller.poll(context.Background()))
	first := drain(t, sub)
	require.NotNil(t, first, "initial snapshot must be broadcast")

	// Identical collection: no second broadcast.
	require.NoError(t, poller.poll(context.Background()))
	assert.Nil(t, drain(t, sub))

	// A status flip changes the serialization and triggers a broadcast.
	lister.set([]entity.Order{sampleOrder(1, entity.StatusRejected)}, nil)
	require.NoError(t, poller.poll(context.Background()))
	second := drain(t, sub)
	require.NotNil(t, second)
	assert.NotEqual(t, string(first), string(second))
}

func TestPollCoalescesWritesWithinInterval(t *testing.T) {
	lister := &stubLister{orders: []entity.Order{sampleOrder(1, entity.StatusPlaced)}}
	hub := NewHub(4, zap.NewNop())
	poller := NewPoller(lister, hub, time.Second, zap.NewNop())

	require.NoError(t, poller.poll(context.Background()))

	sub := hub.Subscribe()
	defer sub.Close()

	// Two writes land between ticks; only the final state is observed.
	lister.set([]entity.Order{sampleOrder(1, entity.StatusPlaced), sampleOrder(2, entity.StatusAwaitingApproval)}, nil)
	lister.set([]entity.Order{sampleOrder(1, entity.StatusPlaced), sampleOrder(2, entity.StatusPlaced)}, nil)
	require.NoError(t, poller.poll(context.Background()))

	payload := drain(t, sub)
	require.NotNil(t, payload)
	assert.Contains(t, string(payload), `"Placed"`)
	assert.NotContains(t, string(payload), "Awaiting Approval", "intermediate state must not leak")
	assert.Nil(t, drain(t, sub), "exactly one broadcast per changed tick")
}

func TestPollErrorSkipsBroadcastAndRetries(t *testing.T) {
	lister := &stubLister{orders: []entity.Order{sampleOrder(1, entity.StatusPlaced)}}
	hub := NewHub(4, zap.NewNop())
	sub := hub.Subscribe()
	defer sub.Close()

	poller := NewPoller(lister, hub, time.Second, zap.NewNop())

	lister.set(lister.orders, errors.New("driver: bad connection"))
	require.Error(t, poller.poll(context.Background()))
	assert.Nil(t, drain(t, sub), "failed poll must not broadcast")

	lister.set(lister.orders, nil)
	require.NoError(t, poller.poll(context.Background()))
	assert.NotNil(t, drain(t, sub), "next successful poll recovers")
}

func TestPollerStartStop(t *testing.T) {
	lister := &stubLister{orders: []entity.Order{sampleOrder(1, entity.StatusPlaced)}}
	hub := NewHub(4, zap.NewNop())
	poller := NewPoller(lister, hub, 5*time.Millisecond, zap.NewNop())

	poller.Start()

	deadline := time.After(time.Second)
	for lister.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("poll loop never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, poller.Stop(ctx))
}

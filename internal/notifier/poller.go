package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jsMelius/Gleisure/internal/dto"
	"github.com/jsMelius/Gleisure/internal/entity"
)

// OrderLister supplies the current order collection for diffing.
type OrderLister interface {
	List(ctx context.Context) ([]entity.Order, error)
}

// Poller periodically snapshots the order collection and broadcasts it
// through the hub whenever its canonical serialization changes. Multiple
// writes inside one interval collapse into a single broadcast carrying only
// the final state.
type Poller struct {
	source   OrderLister
	hub      *Hub
	interval time.Duration
	logger   *zap.Logger

	// snapshot is the serialization of the last broadcast collection. Owned
	// exclusively by the poll loop.
	snapshot []byte

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller constructs a Poller over the given order source.
func NewPoller(source OrderLister, hub *Hub, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{
		source:   source,
		hub:      hub,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the poll loop. It runs until Stop is called.
func (p *Poller) Start() {
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(runCtx)
	}()
}

// Stop terminates the poll loop and waits for it to exit.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				// Transient by definition; the next tick retries.
				p.logger.Warn("order poll failed", zap.Error(err))
			}
		}
	}
}

// poll fetches the full collection, compares with the previous broadcast, and
// publishes when anything differs. Comparison is on the serialized bytes so
// any field or ordering change is detected, not just row counts.
func (p *Poller) poll(ctx context.Context) error {
	orders, err := p.source.List(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(dto.NewOrderResponses(orders))
	if err != nil {
		return err
	}

	if bytes.Equal(payload, p.snapshot) {
		return nil
	}

	p.snapshot = payload
	p.hub.Broadcast(payload)
	p.logger.Debug("order collection broadcast", zap.Int("orders", len(orders)), zap.Int("subscribers", p.hub.Count()))
	return nil
}

package tests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
	"github.com/senharo1981/tdr-store/pkg/domain/service"
)

func quietLogger() log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func product(id, name string, p int64, unit string) model.Product {
	return model.Product{
		ID:       id,
		Name:     name,
		Category: "Rice",
		Price:    decimal.NewFromInt(p),
		Unit:     unit,
		Image:    model.PlaceholderImage,
		InStock:  true,
	}
}

var testCategories = []model.Category{
	{Name: "Rice", Labels: map[string]string{"en": "Rice", "ur": "چاول"}},
	{Name: "Dairy", Labels: map[string]string{"en": "Dairy", "ur": "دودھ اور دہی"}},
}

var _ model.CatalogRepository = &mockCatalogRepository{}

type mockCatalogRepository struct {
	mu        sync.Mutex
	stored    []model.Product
	loadErr   error
	saveErr   error
	saves     [][]model.Product
	saveCount int
}

func (m *mockCatalogRepository) Load(_ context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.stored == nil {
		return nil, model.ErrCatalogNotFound
	}
	out := make([]model.Product, len(m.stored))
	copy(out, m.stored)
	return out, nil
}

func (m *mockCatalogRepository) Save(_ context.Context, products []model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCount++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, products)
	m.stored = products
	return nil
}

func (m *mockCatalogRepository) Last() []model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored
}

// stallingCatalogRepository holds every Save until release is closed, the way
// an unreachable database would.
type stallingCatalogRepository struct {
	mockCatalogRepository
	release chan struct{}
}

func (r *stallingCatalogRepository) Save(ctx context.Context, products []model.Product) error {
	<-r.release
	return r.mockCatalogRepository.Save(ctx, products)
}

func (m *mockCatalogRepository) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCount
}

var _ model.IDGenerator = &sequentialIDs{}

type sequentialIDs struct {
	mu   sync.Mutex
	next int
	fail bool
}

func (g *sequentialIDs) NextID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return "", errors.New("clock unavailable")
	}
	g.next++
	return fmt.Sprintf("p-%d", g.next), nil
}

var _ service.EventDispatcher = &mockEventDispatcher{}

type mockEventDispatcher struct {
	mu     sync.Mutex
	events []service.Event
}

func (m *mockEventDispatcher) Dispatch(event service.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Events() []service.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]service.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockEventDispatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

var _ model.OrderSink = &mockOrderSink{}

var errChannelClosed = errors.New("channel closed")

type mockOrderSink struct {
	mu          sync.Mutex
	ShouldError bool
	orders      []model.Order

	// When gate is set, Send signals entered and waits for gate to close.
	gate    chan struct{}
	entered chan struct{}
}

func (m *mockOrderSink) Send(_ context.Context, order model.Order) error {
	if m.gate != nil {
		m.entered <- struct{}{}
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldError {
		return errChannelClosed
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderSink) Orders() []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Order(nil), m.orders...)
}

var _ service.Scheduler = &manualScheduler{}

// manualScheduler records timers and fires them only when told to.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) service.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// FireAll runs every timer that is still pending, the way the runtime would
// once their delay elapsed.
func (s *manualScheduler) FireAll() {
	s.mu.Lock()
	pending := make([]*manualTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			pending = append(pending, t)
		}
	}
	s.mu.Unlock()
	for _, t := range pending {
		t.f()
	}
}

// FireStale runs a timer even though it was stopped, simulating a callback
// that was already in flight when Stop was called.
func (s *manualScheduler) FireStale(i int) {
	s.mu.Lock()
	t := s.timers[i]
	s.mu.Unlock()
	t.f()
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (s *manualScheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

var _ model.Locator = &stubLocator{}

type stubLocator struct {
	coords  model.Coordinates
	err     error
	release chan struct{}
	panics  bool
}

func (l *stubLocator) Locate(ctx context.Context) (model.Coordinates, error) {
	if l.panics {
		panic("sensor crashed")
	}
	if l.release != nil {
		select {
		case <-l.release:
		case <-ctx.Done():
			return model.Coordinates{}, ctx.Err()
		}
	}
	return l.coords, l.err
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

var ErrDuplicateProductID = errors.New("generated product id already exists")

const (
	persistTimeout = 5 * time.Second
	maxIDAttempts  = 3
)

type CatalogService interface {
	AddProduct(draft model.ProductDraft) (model.Product, error)
	RemoveProduct(id string) error
	Products() []model.Product
	Product(id string) (model.Product, error)
	Featured() []model.Product
	Categories() []model.Category

	// Flush waits for every write queued so far.
	Flush()
	Close() error
}

type CatalogConfig struct {
	Seed       []model.Product
	Categories []model.Category
}

// NewCatalogService hydrates the catalog from repo, falling back to the seed
// products when nothing usable is stored.
func NewCatalogService(
	ctx context.Context,
	repo model.CatalogRepository,
	cfg CatalogConfig,
	ids model.IDGenerator,
	dispatcher EventDispatcher,
	logger log.FieldLogger,
) CatalogService {
	s := &catalogService{
		repo:       repo,
		ids:        ids,
		categories: cfg.Categories,
		dispatcher: dispatcher,
		logger:     logger,
		wake:       make(chan struct{}, 1),
	}
	s.saved = sync.NewCond(&s.pendingMu)

	products, err := repo.Load(ctx)
	switch {
	case errors.Is(err, model.ErrCatalogNotFound):
		logger.Info("no stored catalog, using seed products")
		products = cloneProducts(cfg.Seed)
	case err != nil:
		logger.WithError(err).Warn("stored catalog is unreadable, using seed products")
		products = cloneProducts(cfg.Seed)
	}
	s.products = products

	s.wg.Add(1)
	go s.writeLoop()

	s.mu.Lock()
	s.persist()
	s.mu.Unlock()

	return s
}

type catalogService struct {
	mu         sync.RWMutex
	products   []model.Product
	categories []model.Category
	closed     bool

	repo       model.CatalogRepository
	ids        model.IDGenerator
	dispatcher EventDispatcher
	logger     log.FieldLogger

	// Only the newest snapshot is kept; the writer saves it when woken.
	pendingMu  sync.Mutex
	pending    []model.Product
	hasPending bool
	queued     uint64
	written    uint64
	saved      *sync.Cond

	wake chan struct{}
	wg   sync.WaitGroup
}

func (s *catalogService) AddProduct(draft model.ProductDraft) (model.Product, error) {
	s.mu.Lock()
	id, err := s.nextID()
	if err != nil {
		s.mu.Unlock()
		return model.Product{}, err
	}
	product, err := model.NewProduct(id, draft, s.categories)
	if err != nil {
		s.mu.Unlock()
		return model.Product{}, err
	}

	s.products = append([]model.Product{product}, s.products...)
	s.persist()
	s.mu.Unlock()

	_ = s.dispatcher.Dispatch(model.ProductAdded{ProductID: product.ID, Name: product.Name})
	return product, nil
}

func (s *catalogService) RemoveProduct(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.products = append(s.products[:i:i], s.products[i+1:]...)
	s.persist()
	s.mu.Unlock()

	_ = s.dispatcher.Dispatch(model.ProductRemoved{ProductID: id})
	return nil
}

func (s *catalogService) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

func (s *catalogService) Product(id string) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Product{}, model.ErrProductNotFound
	}
	return s.products[i], nil
}

func (s *catalogService) Featured() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var featured []model.Product
	for _, p := range s.products {
		if p.IsFeatured {
			featured = append(featured, p)
		}
	}
	return featured
}

func (s *catalogService) Categories() []model.Category {
	out := make([]model.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Flush blocks until every snapshot queued before the call has been saved.
func (s *catalogService) Flush() {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	target := s.queued
	for s.written < target {
		s.saved.Wait()
	}
}

func (s *catalogService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.wake)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// persist replaces the pending snapshot and wakes the writer. It never blocks
// on the repository. Callers hold s.mu.
func (s *catalogService) persist() {
	if s.closed {
		s.logger.Warn("catalog closed, dropping write")
		return
	}
	s.pendingMu.Lock()
	s.pending = cloneProducts(s.products)
	s.hasPending = true
	s.queued++
	s.pendingMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *catalogService) writeLoop() {
	defer s.wg.Done()
	for {
		_, open := <-s.wake
		for s.saveLatest() {
		}
		if !open {
			return
		}
	}
}

// saveLatest writes the pending snapshot, if any, and reports whether it did.
func (s *catalogService) saveLatest() bool {
	s.pendingMu.Lock()
	if !s.hasPending {
		s.pendingMu.Unlock()
		return false
	}
	products, seq := s.pending, s.queued
	s.pending, s.hasPending = nil, false
	s.pendingMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	if err := s.repo.Save(ctx, products); err != nil {
		s.logger.WithError(err).WithField("products", len(products)).Error("failed to persist catalog")
	}
	cancel()

	s.pendingMu.Lock()
	s.written = seq
	s.saved.Broadcast()
	s.pendingMu.Unlock()
	return true
}

func (s *catalogService) nextID() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.ids.NextID()
		if err != nil {
			return "", errors.Wrap(err, "generate product id")
		}
		if s.indexOf(id) < 0 {
			return id, nil
		}
	}
	return "", ErrDuplicateProductID
}

func (s *catalogService) indexOf(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneProducts(products []model.Product) []model.Product {
	out := make([]model.Product, len(products))
	copy(out, products)
	return out
}

type uuidGenerator struct{}

func NewUUIDGenerator() model.IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NextID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

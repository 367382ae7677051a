package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/cart-sync/internal/domain"
	"github.com/fjod/go_cart/cart-sync/internal/logger"
	"github.com/fjod/go_cart/cart-sync/internal/remote"
	"github.com/fjod/go_cart/cart-sync/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStorageKey    = "myshop_cart"
	DefaultPageSize      = 50
	DefaultMirrorTimeout = 10 * time.Second
)

type State int32

const (
	StateReady State = iota
	StateLoading
)

func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "ready"
}

// Store owns the cart for one shopper. Every mutation is committed to the
// local cache first; the remote service only gets a best-effort toggle that
// is never awaited and never rolled back.
type Store struct {
	mu     sync.Mutex
	lines  domain.Snapshot
	state  atomic.Int32
	local  storage.LocalStore
	remote remote.CartService
	sfg    singleflight.Group

	inflight sync.WaitGroup

	key           string
	pageSize      int
	maxPages      int
	mirrorTimeout time.Duration
	log           *zap.Logger
}

type Option func(*Store)

func WithStorageKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		s.log = logger.OrNop(log)
	}
}

func WithPageSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithMaxPages(n int) Option {
	return func(s *Store) {
		s.maxPages = n
	}
}

func WithMirrorTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.mirrorTimeout = d
		}
	}
}

// New seeds the store synchronously from the local cache. svc may be nil,
// in which case the store is local-only.
func New(ctx context.Context, local storage.LocalStore, svc remote.CartService, opts ...Option) *Store {
	s := &Store{
		local:         local,
		remote:        svc,
		key:           DefaultStorageKey,
		pageSize:      DefaultPageSize,
		mirrorTimeout: DefaultMirrorTimeout,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("storage_key", s.key))

	s.lines = s.readLocal(ctx)
	return s
}

// Open is New followed by a background Load.
func Open(ctx context.Context, local storage.LocalStore, svc remote.CartService, opts ...Option) *Store {
	s := New(ctx, local, svc, opts...)
	s.state.Store(int32(StateLoading))
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.Load(ctx)
	}()
	return s
}

// Load reconciles with the remote service. A non-empty remote cart replaces
// local state and is written back; an empty or failed fetch keeps the local
// cache. Concurrent calls share one reconciliation.
func (s *Store) Load(ctx context.Context) {
	_, _, _ = s.sfg.Do(s.key, func() (interface{}, error) {
		s.state.Store(int32(StateLoading))
		defer s.state.Store(int32(StateReady))

		s.mu.Lock()
		s.lines = s.readLocal(ctx)
		s.mu.Unlock()

		if s.remote == nil {
			return nil, nil
		}

		log := logger.WithTrace(ctx, s.log)
		records, err := remote.FetchAll(ctx, s.remote, s.pageSize, s.maxPages)
		if err != nil {
			log.Warn("remote cart fetch failed, keeping local cart", zap.Error(err))
			return nil, nil
		}

		lines := remote.NormalizeRecords(records)
		if len(lines) == 0 {
			log.Debug("remote cart empty, keeping local cart", zap.Int("records", len(records)))
			return nil, nil
		}

		s.mu.Lock()
		s.writeLocal(ctx, lines)
		s.lines = lines
		s.mu.Unlock()
		log.Info("cart replaced from remote", zap.Int("lines", len(lines)))
		return nil, nil
	})
}

// AddToCart merges line into the cart and mirrors the product to the remote
// service. It always reports true; the local commit is the result.
func (s *Store) AddToCart(ctx context.Context, line domain.CartLine) bool {
	line.Quantity = max(1, line.Quantity)

	s.mu.Lock()
	lines := s.readLocal(ctx).Add(line)
	s.writeLocal(ctx, lines)
	s.lines = lines
	s.mu.Unlock()

	s.mirror(ctx, "add", line.ProductID)
	return true
}

// RemoveFromCart deletes the whole line for the key, whatever its quantity.
func (s *Store) RemoveFromCart(ctx context.Context, productID, color, size string) bool {
	s.mirror(ctx, "remove", productID)

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.readLocal(ctx).Remove(domain.NewLineKey(productID, color, size))
	s.writeLocal(ctx, lines)
	s.lines = lines
	return true
}

// UpdateQuantity sets the quantity of an existing line, never below 1.
// Unknown lines are ignored. The remote service is not told.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int, color, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.readLocal(ctx)
	if !lines.SetQuantity(domain.NewLineKey(productID, color, size), quantity) {
		return
	}
	s.writeLocal(ctx, lines)
	s.lines = lines
}

// ClearCart drops the local cache entry. Server-side membership is left as is.
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.local.Remove(ctx, s.key); err != nil {
		s.log.Warn("local cart remove failed", zap.Error(err))
	}
	s.lines = nil
}

func (s *Store) Items() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Clone()
}

func (s *Store) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.TotalPrice()
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.ItemCount()
}

func (s *Store) State() State {
	return State(s.state.Load())
}

// Close waits for the background load and in-flight remote mirrors.
func (s *Store) Close() {
	s.inflight.Wait()
}

func (s *Store) mirror(ctx context.Context, op, productID string) {
	if s.remote == nil {
		return
	}
	// outlive the caller's cancellation but keep its values for tracing
	ctx = context.WithoutCancel(ctx)
	log := logger.WithTrace(ctx, s.log)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, s.mirrorTimeout)
		defer cancel()
		err := s.remote.ToggleCartItem(ctx, productID)
		if err == nil {
			return
		}
		fields := []zap.Field{zap.String("op", op), zap.String("product_id", productID), zap.Error(err)}
		if errors.Is(err, remote.ErrUnavailable) {
			// breaker is open; it already logged the transition
			log.Debug("remote cart toggle skipped", fields...)
			return
		}
		log.Warn("remote cart toggle failed", fields...)
	}()
}

// readLocal never fails: a missing, unreadable or corrupt entry is an empty
// cart. Corrupt entries are removed.
func (s *Store) readLocal(ctx context.Context) domain.Snapshot {
	data, err := s.local.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn("local cart read failed", zap.Error(err))
		return nil
	}

	lines, err := domain.DecodeSnapshot(data)
	if err != nil {
		s.log.Warn("local cart corrupt, discarding", zap.Error(err))
		if errRemove := s.local.Remove(ctx, s.key); errRemove != nil {
			s.log.Warn("local cart remove failed", zap.Error(errRemove))
		}
		return nil
	}
	return lines
}

func (s *Store) writeLocal(ctx context.Context, lines domain.Snapshot) {
	data, err := domain.EncodeSnapshot(lines)
	if err != nil {
		s.log.Error("local cart encode failed", zap.Error(err))
		return
	}
	if err := s.local.Set(ctx, s.key, data); err != nil {
		s.log.Warn("local cart write failed", zap.Error(err))
	}
}

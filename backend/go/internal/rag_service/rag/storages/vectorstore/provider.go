package vectorstore

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"

	"golang.org/x/sync/singleflight"
)

// State is the lifecycle state of a Provider.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Factory builds a vector store handle.
type Factory func(ctx context.Context) (interfaces.VectorStore, error)

// Provider lazily builds one vector store handle and hands the same handle to every caller.
// Concurrent first calls share a single construction. A failed construction is returned to the
// callers waiting on it and the next call tries again.
type Provider struct {
	factory Factory
	group   singleflight.Group
	state   atomic.Int32

	mu    sync.RWMutex
	store interfaces.VectorStore
}

// NewProvider creates a Provider in the uninitialized state.
func NewProvider(factory Factory) *Provider {
	return &Provider{factory: factory}
}

// NewStaticProvider wraps an already built store. Mostly useful in tests.
func NewStaticProvider(store interfaces.VectorStore) *Provider {
	p := &Provider{factory: func(context.Context) (interfaces.VectorStore, error) { return store, nil }}
	p.store = store
	p.state.Store(int32(StateReady))
	return p
}

// Get returns the cached handle, building it on first use.
func (p *Provider) Get(ctx context.Context) (interfaces.VectorStore, error) {
	if s := p.cached(); s != nil {
		return s, nil
	}

	v, err, _ := p.group.Do("vectorstore", func() (interface{}, error) {
		if s := p.cached(); s != nil {
			return s, nil
		}
		p.state.Store(int32(StateInitializing))
		s, err := p.factory(ctx)
		if err != nil {
			p.state.Store(int32(StateUninitialized))
			return nil, ragerr.Wrap(ragerr.ErrVectorIndex, err)
		}

		p.mu.Lock()
		p.store = s
		p.mu.Unlock()
		p.state.Store(int32(StateReady))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(interfaces.VectorStore), nil
}

// State reports the current lifecycle state.
func (p *Provider) State() State {
	return State(p.state.Load())
}

// Reset drops the cached handle without closing it. The next Get builds a new one.
func (p *Provider) Reset() {
	p.mu.Lock()
	p.store = nil
	p.mu.Unlock()
	p.state.Store(int32(StateUninitialized))
}

// Close closes the cached handle if it holds resources, then resets.
func (p *Provider) Close() error {
	s := p.cached()
	p.Reset()
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Provider) cached() interfaces.VectorStore {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

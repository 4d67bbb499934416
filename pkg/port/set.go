package port

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/domain"
)

// Pipe opens one channel on the backend and returns the two handles, both Connected.
func Pipe[T any](ctx context.Context, b channel.Backend, name string, capacity int, out domain.OutputPortID, in domain.InputPortID) (*Output[T], *Input[T], error) {
	tx, rx, err := channel.Open[T](ctx, b, name, capacity)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open channel %s: %w", name, err)
	}
	return OpenOutput(out, tx), OpenInput(in, rx), nil
}

// Closer is implemented by every port handle.
type Closer interface {
	Close() error
	State() domain.PortState
}

// Set holds live port handles of mixed message types, keyed by port ID.
type Set struct {
	mu      sync.RWMutex
	handles map[domain.PortID]Closer
}

func NewSet() *Set {
	return &Set{handles: make(map[domain.PortID]Closer)}
}

// Add stores a handle. Adding the same ID twice is rejected.
func (s *Set) Add(id domain.PortID, h Closer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.handles[id]; exists {
		return domain.NewBuildError(domain.ErrDuplicatePort, id)
	}
	s.handles[id] = h
	return nil
}

func (s *Set) get(id domain.PortID) (Closer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownPort, id)
	}
	return h, nil
}

// Has reports whether a handle is stored under id.
func (s *Set) Has(id domain.PortID) bool {
	_, err := s.get(id)
	return err == nil
}

// IDs returns the stored IDs in ascending order.
func (s *Set) IDs() []domain.PortID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.PortID, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// States snapshots the lifecycle state of every handle.
func (s *Set) States() map[domain.PortID]domain.PortState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make(map[domain.PortID]domain.PortState, len(s.handles))
	for id, h := range s.handles {
		states[id] = h.State()
	}
	return states
}

// CloseAll closes every handle and joins the failures.
func (s *Set) CloseAll() error {
	var errs []error
	for _, id := range s.IDs() {
		h, err := s.get(id)
		if err != nil {
			continue
		}
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("port %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Get returns the handle stored under id as H.
func Get[H Closer](s *Set, id domain.PortID) (H, error) {
	var zero H
	h, err := s.get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := h.(H)
	if !ok {
		return zero, fmt.Errorf("%w %d: stored handle is %T, want %T", domain.ErrKindMismatch, id, h, zero)
	}
	return typed, nil
}

// In returns the typed input handle stored under id.
func In[T any](s *Set, id domain.InputPortID) (*Input[T], error) {
	return Get[*Input[T]](s, id.PortID())
}

// Out returns the typed output handle stored under id.
func Out[T any](s *Set, id domain.OutputPortID) (*Output[T], error) {
	return Get[*Output[T]](s, id.PortID())
}

package engine

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/pkg/metrics"
)

// =============================================================================
// Ledger
// =============================================================================

// ledger tracks the lists a session has handed out and not yet had back,
// by id and buffer size.
type ledger struct {
	mutex    sync.Mutex
	next     uint64
	live     map[uint64]int
	recorder *metrics.Recorder
}

func newLedger(r *metrics.Recorder) *ledger {
	return &ledger{live: make(map[uint64]int), recorder: r}
}

func (l *ledger) register(size int) uint64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.next++
	l.live[l.next] = size
	l.recorder.BufferAcquired()
	return l.next
}

func (l *ledger) release(id uint64) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.live[id]; !ok {
		return pkg.ErrAlreadyReleased
	}
	delete(l.live, id)
	l.recorder.BufferReleased()
	return nil
}

func (l *ledger) outstanding() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.live)
}

// bytes returns the total size of the lists not yet released.
func (l *ledger) bytes() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	n := 0
	for _, size := range l.live {
		n += size
	}
	return n
}

// =============================================================================
// List
// =============================================================================

// List is a decoded variable-length result owned by the caller until
// Release. Each List is a separate allocation.
type List[T any] struct {
	items    []T
	id       uint64
	size     int
	ledger   *ledger
	released atomic.Bool
}

func newList[T any](l *ledger, items []T) *List[T] {
	if items == nil {
		items = []T{}
	}
	elem := int(reflect.TypeOf((*T)(nil)).Elem().Size())
	list := &List[T]{items: items, size: len(items) * elem, ledger: l}
	list.id = l.register(list.size)
	return list
}

// Items returns the elements in order. It panics if the list has been
// released.
func (l *List[T]) Items() []T {
	if l.released.Load() {
		panic("engine: Items called on released list")
	}
	return l.items
}

// Len returns the element count.
func (l *List[T]) Len() int { return len(l.items) }

// Size returns the buffer size in bytes: Len times the element size.
func (l *List[T]) Size() int { return l.size }

// ID returns the ledger identifier of the list.
func (l *List[T]) ID() uint64 { return l.id }

// Release returns the list to its session. The list carries its own
// count and size, so a release cannot disagree with the allocation. A
// second call returns pkg.ErrAlreadyReleased. Release may be called from
// any goroutine.
func (l *List[T]) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyReleased
	}
	return l.ledger.release(l.id)
}

// Use calls fn with the items of list if err is nil and then releases the
// list, even if fn panics. It returns err, or the errors of fn and Release
// joined.
func Use[T any](list *List[T], err error, fn func(items []T) error) (rerr error) {
	if err != nil {
		return err
	}
	defer func() {
		rerr = errors.Join(rerr, list.Release())
	}()
	return fn(list.Items())
}

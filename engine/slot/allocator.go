// Package slot provides a dense, recyclable handle store used to hand out
// bounded hardware resource units such as image binding units.
package slot

import (
	"errors"
	"math"
	"reflect"
)

// Handle identifies a slot. Valid handles are non-negative.
type Handle int

// Invalid is returned by Add when no handle could be assigned.
const Invalid Handle = -1

const (
	// MinimumCapacity is the capacity floor applied when an allocator is created.
	// Only a smaller maximum capacity lowers it.
	MinimumCapacity = 32

	// MaxHandle is the default maximum capacity, the largest handle count a
	// 32-bit unit index can address.
	MaxHandle = math.MaxInt32
)

var (
	// ErrExhausted is returned by Add when the allocator is full and already at
	// its maximum capacity.
	ErrExhausted = errors.New("slot allocator exhausted")

	// ErrNilOwner is returned by Add when the owner is nil.
	ErrNilOwner = errors.New("slot owner must not be nil")
)

// allocatorImpl is the implementation of the Allocator interface.
type allocatorImpl[T any] struct {
	values   []T
	occupied []bool
	free     []Handle

	size     int
	next     int
	capacity int
	maxCap   int
}

// Allocator maps small non-negative handles to owner objects.
//
// Handles are dense: a fresh allocator hands out 0, 1, 2, ... and reuses
// handles released through Remove. Capacity doubles when the allocator is full
// and is clamped to a maximum so the handle range never overflows. An
// Allocator is not safe for concurrent use; it is meant to be owned by the
// goroutine driving the graphics context.
type Allocator[T any] interface {
	// Add assigns a handle to owner.
	//
	// Parameters:
	//   - owner: the object to register (must not be nil)
	//
	// Returns:
	//   - Handle: the assigned handle, or Invalid on failure
	//   - error: ErrNilOwner for a nil owner, ErrExhausted when no handle is left
	Add(owner T) (Handle, error)

	// Get returns the owner registered under h.
	// Out-of-range and free handles report false; Get never panics.
	//
	// Parameters:
	//   - h: the handle to look up
	//
	// Returns:
	//   - T: the owner, or the zero value
	//   - bool: true if h is currently assigned
	Get(h Handle) (T, bool)

	// Remove releases h and returns its previous owner for caller-side cleanup.
	// Releasing a free or out-of-range handle is a no-op.
	//
	// Parameters:
	//   - h: the handle to release
	//
	// Returns:
	//   - T: the released owner, or the zero value
	//   - bool: true if an owner was released
	Remove(h Handle) (T, bool)

	// Len returns the number of assigned handles.
	//
	// Returns:
	//   - int: the occupied count
	Len() int

	// Cap returns the current capacity.
	//
	// Returns:
	//   - int: the number of handles addressable without growing
	Cap() int

	// MaxCap returns the capacity ceiling.
	//
	// Returns:
	//   - int: the maximum capacity
	MaxCap() int

	// Each calls fn for every assigned handle in ascending handle order.
	// fn must not add or remove handles.
	//
	// Parameters:
	//   - fn: visitor receiving the handle and its owner
	Each(fn func(h Handle, owner T))
}

var _ Allocator[any] = &allocatorImpl[any]{}

// NewAllocator creates an empty Allocator.
//
// Parameters:
//   - opts: variadic list of AllocatorBuilderOption functions
//
// Returns:
//   - Allocator[T]: the new allocator
func NewAllocator[T any](opts ...AllocatorBuilderOption) Allocator[T] {
	cfg := allocatorConfig{
		initialCapacity: MinimumCapacity,
		maxCapacity:     MaxHandle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	maxCap := max(cfg.maxCapacity, 1)
	capacity := min(max(cfg.initialCapacity, MinimumCapacity), maxCap)

	return &allocatorImpl[T]{
		values:   make([]T, capacity),
		occupied: make([]bool, capacity),
		capacity: capacity,
		maxCap:   maxCap,
	}
}

func (a *allocatorImpl[T]) Add(owner T) (Handle, error) {
	if isNil(owner) {
		return Invalid, ErrNilOwner
	}
	if a.size == a.capacity && !a.grow() {
		return Invalid, ErrExhausted
	}

	var h Handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		h = Handle(a.next)
		a.next++
	}

	a.values[h] = owner
	a.occupied[h] = true
	a.size++
	return h, nil
}

func (a *allocatorImpl[T]) Get(h Handle) (T, bool) {
	var zero T
	if h < 0 || int(h) >= a.capacity || !a.occupied[h] {
		return zero, false
	}
	return a.values[h], true
}

func (a *allocatorImpl[T]) Remove(h Handle) (T, bool) {
	var zero T
	owner, ok := a.Get(h)
	if !ok {
		return zero, false
	}
	a.values[h] = zero
	a.occupied[h] = false
	a.size--
	a.free = append(a.free, h)
	return owner, true
}

func (a *allocatorImpl[T]) Len() int {
	return a.size
}

func (a *allocatorImpl[T]) Cap() int {
	return a.capacity
}

func (a *allocatorImpl[T]) MaxCap() int {
	return a.maxCap
}

func (a *allocatorImpl[T]) Each(fn func(h Handle, owner T)) {
	for i := 0; i < a.next; i++ {
		if a.occupied[i] {
			fn(Handle(i), a.values[i])
		}
	}
}

// grow doubles the capacity, clamping the last step to maxCap.
// It reports false when the allocator is already at maxCap.
func (a *allocatorImpl[T]) grow() bool {
	if a.capacity >= a.maxCap {
		return false
	}
	newCap := a.maxCap
	if a.capacity <= a.maxCap/2 {
		newCap = a.capacity * 2
	}

	values := make([]T, newCap)
	occupied := make([]bool, newCap)
	copy(values, a.values)
	copy(occupied, a.occupied)
	a.values = values
	a.occupied = occupied
	a.capacity = newCap
	return true
}

// isNil reports whether v is nil, including typed nil pointers stored in T.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

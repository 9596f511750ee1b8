// Package resources implements the heterogeneous, type-identity-keyed store
// the runtime threads through a command execution. Plain values (workspace paths, parameter stores, discovered
// states) are inserted and borrowed by Go type; per-item per-mode state
// slots (Current[S], Goal[S], ...) are additionally keyed by item id and
// Mode so that two items sharing the same State type never collide.
package resources

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// Mode disambiguates which per-item state slot a value belongs to. The same
// concrete State type can be present under several modes at once for the
// same item (e.g. Current[VecState] and Goal[VecState]).
type Mode int

const (
	ModeCurrent Mode = iota
	ModeGoal
	ModeClean
	ModeApplyDry
	ModeExample
)

func (m Mode) String() string {
	switch m {
	case ModeCurrent:
		return "current"
	case ModeGoal:
		return "goal"
	case ModeClean:
		return "clean"
	case ModeApplyDry:
		return "apply_dry"
	case ModeExample:
		return "example"
	default:
		return "unknown"
	}
}

type slotKey struct {
	ns  string // namespace: a Mode.String(), or a name passed to the *Named functions ("params", diff and stored-state namespaces)
	id  itemid.ID
	typ reflect.Type
}

// Resources is exclusively owned by a single CmdContext. It is not
// goroutine-safe across concurrent writers to distinct types; a mutex
// guards the maps themselves so concurrent item fan-out can insert
// independent slots without racing on the backing map.
type Resources struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
	slots  map[slotKey]any
}

// New returns an empty Resources store.
func New() *Resources {
	return &Resources{
		values: make(map[reflect.Type]any),
		slots:  make(map[slotKey]any),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Insert stores v, overwriting any prior value of the same type.
func Insert[T any](r *Resources, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[typeOf[T]()] = v
}

// Borrow returns the stored value of type T, if any.
func Borrow[T any](r *Resources) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	v, ok := r.values[typeOf[T]()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// BorrowMut is an alias for Borrow: Go has no const/mut borrow distinction
// at runtime, callers mutating through a pointer type use Borrow directly.
func BorrowMut[T any](r *Resources) (T, bool) {
	return Borrow[T](r)
}

// TryRemove removes and returns the stored value of type T, if any.
func TryRemove[T any](r *Resources) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	t := typeOf[T]()
	v, ok := r.values[t]
	if !ok {
		return zero, false
	}
	delete(r.values, t)
	return v.(T), true
}

// MustBorrow is Borrow, but panics with a descriptive message when the
// resource is absent. CmdBlocks use this for declared inputs: a missing
// declared input is a resource-fetch failure, fatal for the
// command, not something item-level code should silently tolerate.
func MustBorrow[T any](r *Resources) T {
	v, ok := Borrow[T](r)
	if !ok {
		var zero T
		panic(fmt.Sprintf("resources: no value of type %T present", zero))
	}
	return v
}

// cell wraps a slot value so Setup can register "not yet populated" without
// colliding with a genuine zero value of T.
type cell[T any] struct {
	present bool
	value   T
}

// SetupSlot registers the marker cell for an item's per-mode state slot.
// Called once per item during CmdContext build (Item.Setup).
func SetupSlot[T any](r *Resources, mode Mode, id itemid.ID) {
	SetupNamed[T](r, mode.String(), id)
}

// SetSlot writes a value into an item's per-mode state slot.
func SetSlot[T any](r *Resources, mode Mode, id itemid.ID, v T) {
	SetNamed[T](r, mode.String(), id, v)
}

// GetSlot reads an item's per-mode state slot. ok is false both when the
// slot was never set up and when it was set up but never populated.
func GetSlot[T any](r *Resources, mode Mode, id itemid.ID) (T, bool) {
	return GetNamed[T](r, mode.String(), id)
}

// ClearSlot resets a slot back to "not yet populated" without removing the
// marker cell itself (used when re-running discovery within one process).
func ClearSlot[T any](r *Resources, mode Mode, id itemid.ID) {
	ClearNamed[T](r, mode.String(), id)
}

// SetupNamed is SetupSlot generalized to an arbitrary namespace, used for
// per-item inputs (resolved Params, borrowed Data) that are not one of the
// five state Modes.
func SetupNamed[T any](r *Resources, ns string, id itemid.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{ns: ns, id: id, typ: typeOf[T]()}
	if _, ok := r.slots[key]; !ok {
		r.slots[key] = cell[T]{}
	}
}

// SetNamed is SetSlot generalized to an arbitrary namespace.
func SetNamed[T any](r *Resources, ns string, id itemid.ID, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{ns: ns, id: id, typ: typeOf[T]()}
	r.slots[key] = cell[T]{present: true, value: v}
}

// GetNamed is GetSlot generalized to an arbitrary namespace.
func GetNamed[T any](r *Resources, ns string, id itemid.ID) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	key := slotKey{ns: ns, id: id, typ: typeOf[T]()}
	v, ok := r.slots[key]
	if !ok {
		return zero, false
	}
	c := v.(cell[T])
	if !c.present {
		return zero, false
	}
	return c.value, true
}

// ClearNamed is ClearSlot generalized to an arbitrary namespace.
func ClearNamed[T any](r *Resources, ns string, id itemid.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{ns: ns, id: id, typ: typeOf[T]()}
	r.slots[key] = cell[T]{}
}

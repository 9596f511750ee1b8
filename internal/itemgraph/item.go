// Package itemgraph implements the item graph runtime: a dependency
// DAG of typed items, driven through discovery/apply/clean/diff operations
// with per-item error isolation and predecessor-respecting concurrency.
package itemgraph

import (
	"context"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/resources"
)

// LimitKind distinguishes the unit an ApplyCheck's progress limit is
// expressed in.
type LimitKind int

const (
	LimitUnknown LimitKind = iota
	LimitSteps
	LimitBytes
)

// ProgressLimit is the optional size hint an item can give for an apply it
// is about to perform.
type ProgressLimit struct {
	Kind LimitKind
	N    uint64
}

// ApplyCheck is the result of Item.ApplyCheck: whether apply/apply_dry
// needs to run at all, and if so, how large the operation is expected to be.
type ApplyCheck struct {
	Required bool
	Limit    ProgressLimit
}

// ExecRequired builds an ApplyCheck that requires execution.
func ExecRequired(limit ProgressLimit) ApplyCheck {
	return ApplyCheck{Required: true, Limit: limit}
}

// ExecNotRequired is the ApplyCheck value meaning apply/apply_dry must not
// be invoked; the state slot is left at the current state.
var ExecNotRequired = ApplyCheck{Required: false}

// Item is the user-implemented unit of work. State, StateDiff, Params and
// Data are the item's four associated types; Go expresses them as the
// interface's type parameters since there is no associated-type mechanism.
//
// TryStateCurrent/TryStateGoal return ok=false to report "not present"
// without that being an error.
type Item[State any, StateDiff any, Params any, Data any] interface {
	// StateExample returns a cheap illustrative value; infallible.
	StateExample(params Params, data Data) State

	// StateClean returns the state that represents "not present".
	StateClean(partial paramspec.Partial[Params], data Data) (State, error)

	// TryStateCurrent may report absence (ok=false) without failing.
	TryStateCurrent(ctx context.Context, partial paramspec.Partial[Params], data Data) (state State, ok bool, err error)

	// StateCurrent is mandatory discovery of the current state.
	StateCurrent(ctx context.Context, params Params, data Data) (State, error)

	// TryStateGoal mirrors TryStateCurrent for the desired state.
	TryStateGoal(ctx context.Context, partial paramspec.Partial[Params], data Data) (state State, ok bool, err error)

	// StateGoal is mandatory discovery of the goal state.
	StateGoal(ctx context.Context, params Params, data Data) (State, error)

	// StateDiff describes the change between two states.
	StateDiff(partial paramspec.Partial[Params], data Data, a, b State) (StateDiff, error)

	// StateEq is the equality relation used by the state-sync staleness
	// check: two states are in sync iff StateEq reports true.
	StateEq(a, b State) bool

	// ApplyCheck reports whether apply is required, and how large it is.
	ApplyCheck(params Params, data Data, current, target State, diff StateDiff) (ApplyCheck, error)

	// ApplyDry simulates apply without side effects, returning the state
	// that would result.
	ApplyDry(ctx context.Context, params Params, data Data, current, target State, diff StateDiff) (State, error)

	// Apply performs the side effects moving current toward target.
	Apply(ctx context.Context, params Params, data Data, current, target State, diff StateDiff) (State, error)
}

// DataLoader resolves an item's declared Data slice from Resources in a
// given ValueResolutionMode. Concrete items implement this alongside Item
// to describe which predecessor slots they read.
type DataLoader[Data any] interface {
	LoadData(mode paramspec.Mode, r *resources.Resources) Data
}

// Named identifies an item by its stable ItemId, independent of its type
// parameters, so the Flow builder can index heterogeneous items.
type Named interface {
	ID() itemid.ID
}

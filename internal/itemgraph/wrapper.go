package itemgraph

import (
	"context"
	"fmt"

	"k8s.io/utils/ptr"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/resources"
)

// ItemRt is the type-erased runtime surface the graph and cmd-block engine
// drive. A generic Item[S,SD,P,D] is never used directly by the engine:
// ItemWrapper closes over the concrete type parameters and exposes only
// this non-generic contract.
type ItemRt interface {
	ID() itemid.ID
	Setup(r *resources.Resources) error
	StateExample(r *resources.Resources) error
	StateClean(r *resources.Resources) error
	TryStateCurrent(ctx context.Context, r *resources.Resources) error
	StateCurrent(ctx context.Context, r *resources.Resources) error
	TryStateGoal(ctx context.Context, r *resources.Resources) error
	StateGoal(ctx context.Context, r *resources.Resources) error
	// Diff computes StateDiff between the Current slot and the given
	// target slot (Goal for Ensure, Clean for Clean), storing the result
	// under a target-keyed diff namespace.
	Diff(r *resources.Resources, target resources.Mode) error
	ApplyCheck(r *resources.Resources, target resources.Mode) (ApplyCheck, error)
	ApplyDry(ctx context.Context, r *resources.Resources, target resources.Mode) error
	Apply(ctx context.Context, r *resources.Resources, target resources.Mode) error

	// CompareCurrent/CompareGoal classify staleness between what was
	// persisted (StoredCurrentNS/StoredGoalNS) and what ModeCurrent/ModeGoal
	// currently holds after a fresh discovery. stale is false whenever
	// nothing was persisted and nothing was discovered, or both sides agree.
	CompareCurrent(r *resources.Resources) (classification Classification, stale bool, err error)
	CompareGoal(r *resources.Resources) (classification Classification, stale bool, err error)

	// LoadStoredCurrent/LoadStoredGoal decode a persisted state value (a
	// *yaml.Node, so the state store stays decoupled from concrete item
	// types) into this item's State. They seed both the stored-state
	// namespace used by staleness comparison and the corresponding slot
	// itself, so an item untouched by this run's discovery still reports
	// its last known state when the run writes state files back out.
	LoadStoredCurrent(r *resources.Resources, node YAMLNode) error
	LoadStoredGoal(r *resources.Resources, node YAMLNode) error

	// DiscoveredCurrent/DiscoveredGoal return the item's ModeCurrent/
	// ModeGoal slot value for serialization, if populated.
	DiscoveredCurrent(r *resources.Resources) (state any, ok bool)
	DiscoveredGoal(r *resources.Resources) (state any, ok bool)

	// SpecKindName names the kind of ParamsSpec this item was built with
	// for the params_specs.yaml merge/mismatch check.
	SpecKindName() string

	// SpecParamsForStore returns the literal Params of a value-kind spec
	// so the builder can persist it into params_specs.yaml. ok is false
	// for every other kind; mapping and field-wise specs carry functions
	// and are persisted by kind name only.
	SpecParamsForStore() (any, bool)

	// AdoptStoredParams reconstructs a value-kind spec from its persisted
	// params. The builder calls it on items built with a Stored spec whose
	// params_specs.yaml entry is reconstructible (stored fills the gaps
	// the caller left).
	AdoptStoredParams(node YAMLNode) error
}

// YAMLNode is the decode surface the state store hands items: exactly the
// method set of *yaml.Node that ItemWrapper needs, so this package does not
// import gopkg.in/yaml.v3 merely to name the parameter type.
type YAMLNode interface {
	Decode(v any) error
}

const nsDiffPrefix = "diff:"

func diffNS(target resources.Mode) string { return nsDiffPrefix + target.String() }

// ItemWrapper adapts a concrete Item[State, StateDiff, Params, Data] (plus
// its DataLoader and ParamsSpec) to the erased ItemRt contract.
type ItemWrapper[S any, SD any, P any, D any] struct {
	id     itemid.ID
	item   Item[S, SD, P, D]
	loader DataLoader[D]
	spec   paramspec.Spec[P]

	storedParams *P
}

// NewItemWrapper builds an ItemWrapper. spec is the item's ParamsSpec as
// resolved by the CmdContext builder (merged provided/stored).
func NewItemWrapper[S any, SD any, P any, D any](
	id itemid.ID,
	item Item[S, SD, P, D],
	loader DataLoader[D],
	spec paramspec.Spec[P],
) *ItemWrapper[S, SD, P, D] {
	return &ItemWrapper[S, SD, P, D]{id: id, item: item, loader: loader, spec: spec}
}

// SetStoredParams seeds the "most recently known" Params value used by
// Stored/InMemory ValueSpecs. AdoptStoredParams and every successful full
// resolution also set that value.
func (w *ItemWrapper[S, SD, P, D]) SetStoredParams(p P) { w.storedParams = ptr.To(p) }

// ID returns the item's stable identifier.
func (w *ItemWrapper[S, SD, P, D]) ID() itemid.ID { return w.id }

// SpecKindName names the ParamsSpec kind this wrapper was built with.
func (w *ItemWrapper[S, SD, P, D]) SpecKindName() string { return w.spec.KindName() }

// SpecParamsForStore returns the literal Params of a value-kind spec.
func (w *ItemWrapper[S, SD, P, D]) SpecParamsForStore() (any, bool) {
	p, ok := w.spec.Literal()
	if !ok {
		return nil, false
	}
	return p, true
}

// AdoptStoredParams replaces a Stored spec with the value-kind spec it was
// persisted from.
func (w *ItemWrapper[S, SD, P, D]) AdoptStoredParams(node YAMLNode) error {
	var p P
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("itemgraph: item %q: decoding stored params spec: %w", w.id, err)
	}
	w.spec = paramspec.SpecValue(p)
	w.storedParams = ptr.To(p)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) resolveFull(mode paramspec.Mode, r *resources.Resources) (P, D, error) {
	var zero P
	data := w.loader.LoadData(mode, r)
	ctx := paramspec.ResolutionCtx{Mode: mode, ItemID: w.id, ExpectedType: fmt.Sprintf("%T", zero)}
	p, _, err := paramspec.Resolve(w.spec, ctx, w.storedParams, data)
	if err != nil {
		return zero, data, err
	}
	w.storedParams = ptr.To(p)
	resources.SetNamed(r, "params", w.id, p)
	return p, data, nil
}

func (w *ItemWrapper[S, SD, P, D]) resolvePartial(mode paramspec.Mode, r *resources.Resources) (paramspec.Partial[P], D) {
	data := w.loader.LoadData(mode, r)
	ctx := paramspec.ResolutionCtx{Mode: mode, ItemID: w.id}
	_, partial, _ := paramspec.Resolve(w.spec, ctx, w.storedParams, data)
	return partial, data
}

// Setup registers the marker cells for this item's per-mode state slots,
// plus the params/diff namespaces.
func (w *ItemWrapper[S, SD, P, D]) Setup(r *resources.Resources) error {
	resources.SetupSlot[S](r, resources.ModeCurrent, w.id)
	resources.SetupSlot[S](r, resources.ModeGoal, w.id)
	resources.SetupSlot[S](r, resources.ModeClean, w.id)
	resources.SetupSlot[S](r, resources.ModeApplyDry, w.id)
	resources.SetupSlot[S](r, resources.ModeExample, w.id)
	resources.SetupNamed[P](r, "params", w.id)
	resources.SetupNamed[SD](r, diffNS(resources.ModeGoal), w.id)
	resources.SetupNamed[SD](r, diffNS(resources.ModeClean), w.id)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) StateExample(r *resources.Resources) error {
	params, data, err := w.resolveFull(paramspec.ModeExample, r)
	if err != nil {
		return err
	}
	state := w.item.StateExample(params, data)
	resources.SetSlot(r, resources.ModeExample, w.id, state)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) StateClean(r *resources.Resources) error {
	partial, data := w.resolvePartial(paramspec.ModeClean, r)
	state, err := w.item.StateClean(partial, data)
	if err != nil {
		return err
	}
	resources.SetSlot(r, resources.ModeClean, w.id, state)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) TryStateCurrent(ctx context.Context, r *resources.Resources) error {
	partial, data := w.resolvePartial(paramspec.ModeCurrent, r)
	state, ok, err := w.item.TryStateCurrent(ctx, partial, data)
	if err != nil {
		return err
	}
	if ok {
		resources.SetSlot(r, resources.ModeCurrent, w.id, state)
	}
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) StateCurrent(ctx context.Context, r *resources.Resources) error {
	params, data, err := w.resolveFull(paramspec.ModeCurrent, r)
	if err != nil {
		return err
	}
	state, err := w.item.StateCurrent(ctx, params, data)
	if err != nil {
		return err
	}
	resources.SetSlot(r, resources.ModeCurrent, w.id, state)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) TryStateGoal(ctx context.Context, r *resources.Resources) error {
	partial, data := w.resolvePartial(paramspec.ModeGoal, r)
	state, ok, err := w.item.TryStateGoal(ctx, partial, data)
	if err != nil {
		return err
	}
	if ok {
		resources.SetSlot(r, resources.ModeGoal, w.id, state)
	}
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) StateGoal(ctx context.Context, r *resources.Resources) error {
	params, data, err := w.resolveFull(paramspec.ModeGoal, r)
	if err != nil {
		return err
	}
	state, err := w.item.StateGoal(ctx, params, data)
	if err != nil {
		return err
	}
	resources.SetSlot(r, resources.ModeGoal, w.id, state)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) Diff(r *resources.Resources, target resources.Mode) error {
	current, ok := resources.GetSlot[S](r, resources.ModeCurrent, w.id)
	if !ok {
		return fmt.Errorf("itemgraph: item %q has no current state to diff from", w.id)
	}
	to, ok := resources.GetSlot[S](r, target, w.id)
	if !ok {
		return fmt.Errorf("itemgraph: item %q has no %s state to diff to", w.id, target)
	}
	partial, data := w.resolvePartial(paramspec.ModeCurrent, r)
	diff, err := w.item.StateDiff(partial, data, current, to)
	if err != nil {
		return err
	}
	resources.SetNamed(r, diffNS(target), w.id, diff)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) ApplyCheck(r *resources.Resources, target resources.Mode) (ApplyCheck, error) {
	params, data, err := w.resolveFull(paramspec.ModeCurrent, r)
	if err != nil {
		return ApplyCheck{}, err
	}
	current, _ := resources.GetSlot[S](r, resources.ModeCurrent, w.id)
	to, _ := resources.GetSlot[S](r, target, w.id)
	diff, _ := resources.GetNamed[SD](r, diffNS(target), w.id)
	return w.item.ApplyCheck(params, data, current, to, diff)
}

func (w *ItemWrapper[S, SD, P, D]) ApplyDry(ctx context.Context, r *resources.Resources, target resources.Mode) error {
	params, data, err := w.resolveFull(paramspec.ModeApplyDry, r)
	if err != nil {
		return err
	}
	current, _ := resources.GetSlot[S](r, resources.ModeCurrent, w.id)
	to, _ := resources.GetSlot[S](r, target, w.id)
	diff, _ := resources.GetNamed[SD](r, diffNS(target), w.id)

	check, err := w.item.ApplyCheck(params, data, current, to, diff)
	if err != nil {
		return err
	}
	if !check.Required {
		// apply_dry is not invoked; the dry-run slot takes the current state.
		resources.SetSlot(r, resources.ModeApplyDry, w.id, current)
		return nil
	}

	state, err := w.item.ApplyDry(ctx, params, data, current, to, diff)
	if err != nil {
		return err
	}
	resources.SetSlot(r, resources.ModeApplyDry, w.id, state)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) Apply(ctx context.Context, r *resources.Resources, target resources.Mode) error {
	params, data, err := w.resolveFull(paramspec.ModeCurrent, r)
	if err != nil {
		return err
	}
	current, _ := resources.GetSlot[S](r, resources.ModeCurrent, w.id)
	to, _ := resources.GetSlot[S](r, target, w.id)
	diff, _ := resources.GetNamed[SD](r, diffNS(target), w.id)

	check, err := w.item.ApplyCheck(params, data, current, to, diff)
	if err != nil {
		return err
	}
	if !check.Required {
		// apply is not invoked; the slot keeps the previously-discovered
		// current state.
		return nil
	}

	state, err := w.item.Apply(ctx, params, data, current, to, diff)
	if err != nil {
		return err
	}
	resources.SetSlot(r, resources.ModeCurrent, w.id, state)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) CompareCurrent(r *resources.Resources) (Classification, bool, error) {
	return w.compare(r, StoredCurrentNS, resources.ModeCurrent)
}

func (w *ItemWrapper[S, SD, P, D]) CompareGoal(r *resources.Resources) (Classification, bool, error) {
	return w.compare(r, StoredGoalNS, resources.ModeGoal)
}

func (w *ItemWrapper[S, SD, P, D]) LoadStoredCurrent(r *resources.Resources, node YAMLNode) error {
	var s S
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("itemgraph: item %q: decoding stored current state: %w", w.id, err)
	}
	resources.SetNamed(r, StoredCurrentNS, w.id, s)
	resources.SetSlot(r, resources.ModeCurrent, w.id, s)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) LoadStoredGoal(r *resources.Resources, node YAMLNode) error {
	var s S
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("itemgraph: item %q: decoding stored goal state: %w", w.id, err)
	}
	resources.SetNamed(r, StoredGoalNS, w.id, s)
	resources.SetSlot(r, resources.ModeGoal, w.id, s)
	return nil
}

func (w *ItemWrapper[S, SD, P, D]) DiscoveredCurrent(r *resources.Resources) (any, bool) {
	s, ok := resources.GetSlot[S](r, resources.ModeCurrent, w.id)
	if !ok {
		return nil, false
	}
	return s, true
}

func (w *ItemWrapper[S, SD, P, D]) DiscoveredGoal(r *resources.Resources) (any, bool) {
	s, ok := resources.GetSlot[S](r, resources.ModeGoal, w.id)
	if !ok {
		return nil, false
	}
	return s, true
}

func (w *ItemWrapper[S, SD, P, D]) compare(r *resources.Resources, storedNS string, mode resources.Mode) (Classification, bool, error) {
	stored, storedOK := resources.GetNamed[S](r, storedNS, w.id)
	discovered, discoveredOK := resources.GetSlot[S](r, mode, w.id)

	switch {
	case !storedOK && !discoveredOK:
		return Classification{Bucket: BucketAbsentBoth}, false, nil
	case storedOK && !discoveredOK:
		return Classification{Bucket: BucketOnlyStored, Stored: fmt.Sprintf("%+v", stored)}, true, nil
	case !storedOK && discoveredOK:
		return Classification{Bucket: BucketOnlyDiscovered, Discovered: fmt.Sprintf("%+v", discovered)}, true, nil
	default:
		if w.item.StateEq(stored, discovered) {
			return Classification{Bucket: BucketAbsentBoth}, false, nil
		}
		return Classification{
			Bucket:     BucketValuesDiffer,
			Stored:     fmt.Sprintf("%+v", stored),
			Discovered: fmt.Sprintf("%+v", discovered),
		}, true, nil
	}
}

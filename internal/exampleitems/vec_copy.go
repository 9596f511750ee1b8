package exampleitems

import (
	"bytes"
	"context"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/resources"
)

// VecCopyParams is vec_copy's single parameter: the byte slice it should
// eventually copy into its backend.
type VecCopyParams struct {
	Goal []byte
}

// VecCopyData is vec_copy's sole declared dependency: the backend it reads
// current state from and writes applied state to.
type VecCopyData struct {
	Backend *VecCopyBackend
}

// VecCopyDataLoader borrows the shared *VecCopyBackend from Resources.
type VecCopyDataLoader struct{}

func (VecCopyDataLoader) LoadData(_ paramspec.Mode, r *resources.Resources) VecCopyData {
	backend, _ := resources.Borrow[*VecCopyBackend](r)
	return VecCopyData{Backend: backend}
}

// VecCopyItem is the vec_copy item of the framework's own scenarios:
// State = []byte, discovered/applied against a VecCopyBackend.
type VecCopyItem struct{}

func (VecCopyItem) StateExample(params VecCopyParams, _ VecCopyData) []byte {
	return params.Goal
}

func (VecCopyItem) StateClean(_ paramspec.Partial[VecCopyParams], _ VecCopyData) ([]byte, error) {
	return []byte{}, nil
}

func (i VecCopyItem) TryStateCurrent(ctx context.Context, _ paramspec.Partial[VecCopyParams], data VecCopyData) ([]byte, bool, error) {
	if data.Backend == nil {
		return nil, false, nil
	}
	state, err := i.StateCurrent(ctx, VecCopyParams{}, data)
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

func (VecCopyItem) StateCurrent(_ context.Context, _ VecCopyParams, data VecCopyData) ([]byte, error) {
	if data.Backend == nil {
		return []byte{}, nil
	}
	return data.Backend.Get(), nil
}

func (i VecCopyItem) TryStateGoal(ctx context.Context, partial paramspec.Partial[VecCopyParams], data VecCopyData) ([]byte, bool, error) {
	v, ok := partial.Get("Goal")
	if !ok {
		return nil, false, nil
	}
	goal, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	_ = i
	_ = ctx
	_ = data
	return goal, true, nil
}

func (VecCopyItem) StateGoal(_ context.Context, params VecCopyParams, _ VecCopyData) ([]byte, error) {
	return params.Goal, nil
}

func (VecCopyItem) StateDiff(_ paramspec.Partial[VecCopyParams], _ VecCopyData, current, goal []byte) (int, error) {
	return len(goal) - len(current), nil
}

func (VecCopyItem) StateEq(a, b []byte) bool {
	return bytes.Equal(a, b)
}

func (VecCopyItem) ApplyCheck(_ VecCopyParams, _ VecCopyData, current, goal []byte, _ int) (itemgraph.ApplyCheck, error) {
	if bytes.Equal(current, goal) {
		return itemgraph.ExecNotRequired, nil
	}
	return itemgraph.ExecRequired(itemgraph.ProgressLimit{Kind: itemgraph.LimitBytes, N: uint64(len(goal))}), nil
}

func (VecCopyItem) ApplyDry(_ context.Context, _ VecCopyParams, _ VecCopyData, _, goal []byte, _ int) ([]byte, error) {
	return goal, nil
}

func (VecCopyItem) Apply(_ context.Context, _ VecCopyParams, data VecCopyData, _, goal []byte, _ int) ([]byte, error) {
	if data.Backend != nil {
		data.Backend.Set(goal)
	}
	return goal, nil
}

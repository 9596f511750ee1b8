package exampleitems

import (
	"context"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/resources"
)

// MockParams is mock's single parameter: the byte it should eventually
// hold in its backend.
type MockParams struct {
	Goal uint8
}

// MockData is mock's sole declared dependency: the backend it reads
// current state from and writes applied state to.
type MockData struct {
	Backend *MockBackend
}

// MockDataLoader borrows the shared *MockBackend from Resources.
type MockDataLoader struct{}

func (MockDataLoader) LoadData(_ paramspec.Mode, r *resources.Resources) MockData {
	backend, _ := resources.Borrow[*MockBackend](r)
	return MockData{Backend: backend}
}

// MockItem is the mock item of the framework's own end-to-end scenarios:
// State = uint8, discovered/applied against a MockBackend.
type MockItem struct{}

func (MockItem) StateExample(params MockParams, _ MockData) uint8 {
	return params.Goal
}

func (MockItem) StateClean(_ paramspec.Partial[MockParams], _ MockData) (uint8, error) {
	return 0, nil
}

func (i MockItem) TryStateCurrent(ctx context.Context, _ paramspec.Partial[MockParams], data MockData) (uint8, bool, error) {
	if data.Backend == nil {
		return 0, false, nil
	}
	state, err := i.StateCurrent(ctx, MockParams{}, data)
	if err != nil {
		return 0, false, err
	}
	return state, true, nil
}

func (MockItem) StateCurrent(_ context.Context, _ MockParams, data MockData) (uint8, error) {
	if data.Backend == nil {
		return 0, nil
	}
	return data.Backend.Get(), nil
}

func (MockItem) TryStateGoal(_ context.Context, partial paramspec.Partial[MockParams], _ MockData) (uint8, bool, error) {
	v, ok := partial.Get("Goal")
	if !ok {
		return 0, false, nil
	}
	goal, ok := v.(uint8)
	if !ok {
		return 0, false, nil
	}
	return goal, true, nil
}

func (MockItem) StateGoal(_ context.Context, params MockParams, _ MockData) (uint8, error) {
	return params.Goal, nil
}

func (MockItem) StateDiff(_ paramspec.Partial[MockParams], _ MockData, current, goal uint8) (int, error) {
	return int(goal) - int(current), nil
}

func (MockItem) StateEq(a, b uint8) bool {
	return a == b
}

func (MockItem) ApplyCheck(_ MockParams, _ MockData, current, goal uint8, _ int) (itemgraph.ApplyCheck, error) {
	if current == goal {
		return itemgraph.ExecNotRequired, nil
	}
	return itemgraph.ExecRequired(itemgraph.ProgressLimit{Kind: itemgraph.LimitSteps, N: 1}), nil
}

func (MockItem) ApplyDry(_ context.Context, _ MockParams, _ MockData, _, goal uint8, _ int) (uint8, error) {
	return goal, nil
}

func (MockItem) Apply(_ context.Context, _ MockParams, data MockData, _, goal uint8, _ int) (uint8, error) {
	if data.Backend != nil {
		data.Backend.Set(goal)
	}
	return goal, nil
}

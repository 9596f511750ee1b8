package cmdexec

// End-to-end scenarios over the literal vec_copy/mock items: a two-item
// flow (vec_copy -> mock) backed by in-process backends, driven through
// discover, ensure, clean, sync-check and interrupt paths.

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/cmdblock"
	"github.com/hashmap-kz/peaceflow/internal/cmdctx"
	"github.com/hashmap-kz/peaceflow/internal/exampleitems"
	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/output"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/resources"
	"github.com/hashmap-kz/peaceflow/internal/statestore"
	"github.com/hashmap-kz/peaceflow/internal/statesync"
)

// scenarioEnv holds the workspace and the two backends that outlive any
// single CmdCtx, the way real external resources outlive a process.
type scenarioEnv struct {
	workspace   string
	vecBackend  *exampleitems.VecCopyBackend
	mockBackend *exampleitems.MockBackend
}

func newScenarioEnv(t *testing.T) *scenarioEnv {
	t.Helper()
	return &scenarioEnv{
		workspace:   t.TempDir(),
		vecBackend:  &exampleitems.VecCopyBackend{},
		mockBackend: &exampleitems.MockBackend{},
	}
}

func (e *scenarioEnv) buildCtx(t *testing.T, vecGoal []byte, mockGoal uint8) *cmdctx.CmdCtx {
	t.Helper()
	flow := itemgraph.NewFlow("deploy")
	vec := itemgraph.NewItemWrapper[[]byte, int, exampleitems.VecCopyParams, exampleitems.VecCopyData](
		"vec_copy", exampleitems.VecCopyItem{}, exampleitems.VecCopyDataLoader{},
		paramspec.SpecValue(exampleitems.VecCopyParams{Goal: vecGoal}))
	mock := itemgraph.NewItemWrapper[uint8, int, exampleitems.MockParams, exampleitems.MockData](
		"mock", exampleitems.MockItem{}, exampleitems.MockDataLoader{},
		paramspec.SpecValue(exampleitems.MockParams{Goal: mockGoal}))
	require.NoError(t, flow.AddItem(vec))
	require.NoError(t, flow.AddItem(mock))
	require.NoError(t, flow.AddEdge("vec_copy", "mock"))

	cc := buildFlowCtx(t, e.workspace, flow)
	resources.Insert(cc.Resources, e.vecBackend)
	resources.Insert(cc.Resources, e.mockBackend)
	return cc
}

func buildFlowCtx(t *testing.T, workspace string, flow *itemgraph.Flow) *cmdctx.CmdCtx {
	t.Helper()
	b := cmdctx.NewBuilder("demo", workspace, cmdctx.SingleProfileSingleFlow)
	b.ProfileSelection = cmdctx.Specified("dev")
	b.FlowID = "deploy"
	b.Flow = flow
	b.OutcomeFormat = output.None
	b.Streams = genericiooptions.IOStreams{}

	cc, err := b.Build()
	require.NoError(t, err)
	return cc
}

// readStates decodes a states file's vec_copy/mock entries.
func readStates(t *testing.T, path string) (vec []byte, vecOK bool, mock uint8, mockOK bool) {
	t.Helper()
	nodes, err := statestore.ReadNodes(path)
	require.NoError(t, err)
	if n, ok := nodes["vec_copy"]; ok {
		vecOK = true
		require.NoError(t, n.Decode(&vec))
	}
	if n, ok := nodes["mock"]; ok {
		mockOK = true
		require.NoError(t, n.Decode(&mock))
	}
	return vec, vecOK, mock, mockOK
}

func TestScenarioDiscoverCurrentAndGoal(t *testing.T) {
	env := newScenarioEnv(t)
	goal := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	cc := env.buildCtx(t, goal, 1)

	out, err := StatesDiscoverCurrentAndGoal(context.Background(), cc)
	require.NoError(t, err)
	assert.Equal(t, Complete, out.Kind)

	vec, vecOK, mock, mockOK := readStates(t, cc.Paths.StatesCurrentPath())
	require.True(t, vecOK)
	require.True(t, mockOK)
	assert.Empty(t, vec)
	assert.Equal(t, uint8(0), mock)

	vec, vecOK, mock, mockOK = readStates(t, cc.Paths.StatesGoalPath())
	require.True(t, vecOK)
	require.True(t, mockOK)
	assert.Equal(t, goal, vec)
	assert.Equal(t, uint8(1), mock)
}

func TestScenarioEnsureThenReRead(t *testing.T) {
	env := newScenarioEnv(t)
	goal := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	cc := env.buildCtx(t, goal, 1)

	out, err := EnsureCmd(context.Background(), cc, statesync.ModeNone, "run-1")
	require.NoError(t, err)
	assert.Equal(t, Complete, out.Kind)

	assert.Equal(t, goal, env.vecBackend.Get())
	assert.Equal(t, uint8(1), env.mockBackend.Get())

	vec, _, mock, _ := readStates(t, cc.Paths.StatesCurrentPath())
	assert.Equal(t, goal, vec)
	assert.Equal(t, uint8(1), mock)

	// a fresh context re-reads the persisted current into its state slots
	cc2 := env.buildCtx(t, goal, 1)
	v, ok := resources.GetSlot[[]byte](cc2.Resources, resources.ModeCurrent, "vec_copy")
	require.True(t, ok)
	assert.Equal(t, goal, v)
}

func TestScenarioSyncCheckCurrentDetectsDrift(t *testing.T) {
	env := newScenarioEnv(t)
	goal := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	cc := env.buildCtx(t, goal, 1)
	_, err := EnsureCmd(context.Background(), cc, statesync.ModeNone, "run-1")
	require.NoError(t, err)

	// the external resource drifted behind the stored current
	env.vecBackend.Set([]byte{0, 1, 2, 3})

	cc2 := env.buildCtx(t, goal, 1)
	_, err = EnsureCmd(context.Background(), cc2, statesync.ModeCurrent, "run-2")
	require.Error(t, err)
	var outOfSync *statesync.StatesCurrentOutOfSync
	require.ErrorAs(t, err, &outOfSync)
	c, ok := outOfSync.Items["vec_copy"]
	require.True(t, ok)
	assert.Equal(t, itemgraph.BucketValuesDiffer, c.Bucket)
	assert.NotContains(t, outOfSync.Items, itemid.ID("mock"))
}

func TestScenarioCleanIgnoresGoalDrift(t *testing.T) {
	env := newScenarioEnv(t)
	cc := env.buildCtx(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, 1)
	_, err := EnsureCmd(context.Background(), cc, statesync.ModeNone, "run-1")
	require.NoError(t, err)

	// goal drifted since the last run; Clean(sync=Goal) collapses to None
	cc2 := env.buildCtx(t, []byte{9, 9}, 2)
	out, err := CleanCmd(context.Background(), cc2, statesync.ModeGoal, "run-2")
	require.NoError(t, err)
	assert.Equal(t, Complete, out.Kind)

	assert.Empty(t, env.vecBackend.Get())
	assert.Equal(t, uint8(0), env.mockBackend.Get())

	vec, vecOK, mock, mockOK := readStates(t, cc2.Paths.StatesCurrentPath())
	require.True(t, vecOK)
	require.True(t, mockOK)
	assert.Empty(t, vec)
	assert.Equal(t, uint8(0), mock)
}

func TestScenarioItemFailureSkipsDescendants(t *testing.T) {
	flow := itemgraph.NewFlow("deploy")
	require.NoError(t, flow.AddItem(&fakeItem{id: "a"}))
	require.NoError(t, flow.AddItem(&fakeItem{id: "b", failCurrent: true}))
	require.NoError(t, flow.AddItem(&fakeItem{id: "c"}))
	require.NoError(t, flow.AddEdge("a", "b"))
	require.NoError(t, flow.AddEdge("b", "c"))
	cc := buildFlowCtx(t, t.TempDir(), flow)

	out, err := StatesDiscoverCurrent(context.Background(), cc)
	require.NoError(t, err)
	assert.Equal(t, ItemError, out.Kind)

	require.Len(t, out.Blocks, 1)
	block := out.Blocks[0]
	assert.ElementsMatch(t, []itemid.ID{"a"}, block.Completed)
	assert.Contains(t, block.Errors, itemid.ID("b"))
	assert.ElementsMatch(t, []itemid.ID{"c"}, block.Skipped)

	nodes, err := statestore.ReadNodes(cc.Paths.StatesCurrentPath())
	require.NoError(t, err)
	assert.NotContains(t, nodes, itemid.ID("c"))
}

func TestScenarioInterruptDuringApply(t *testing.T) {
	env := newScenarioEnv(t)
	goal := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	cc := env.buildCtx(t, goal, 1)

	// 5 poll ticks cover both discovery fan-outs and vec_copy's apply; the
	// signal fires as the apply fan-out picks mock.
	cc.Interrupt.RequestPollNextN(5)

	out, err := EnsureCmd(context.Background(), cc, statesync.ModeNone, "run-1")
	require.NoError(t, err)
	assert.Equal(t, BlockInterrupted, out.Kind)

	require.NotEmpty(t, out.BlocksProcessed)
	assert.Equal(t, cmdblock.NameApplyStateSyncCheck, out.BlocksProcessed[len(out.BlocksProcessed)-1])
	require.NotEmpty(t, out.BlocksNotProcessed)
	assert.Equal(t, cmdblock.NameApplyExec, out.BlocksNotProcessed[0])

	applyBlock := out.Blocks[len(out.Blocks)-1]
	assert.Equal(t, cmdblock.Interrupted, applyBlock.Kind)
	assert.ElementsMatch(t, []itemid.ID{"vec_copy"}, applyBlock.Completed)
	assert.ElementsMatch(t, []itemid.ID{"mock"}, applyBlock.NotStarted)

	// partial state preserved: the new vec_copy value, the old mock value
	vec, _, mock, mockOK := readStates(t, cc.Paths.StatesCurrentPath())
	assert.Equal(t, goal, vec)
	require.True(t, mockOK)
	assert.Equal(t, uint8(0), mock)
	assert.Equal(t, uint8(0), env.mockBackend.Get())
}

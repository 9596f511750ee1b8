package cmdctx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/output"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/resources"
	"k8s.io/cli-runtime/pkg/genericiooptions"
)

func TestDerivePathsNoFlowScope(t *testing.T) {
	p := DerivePaths("/ws", "myapp", "", "")
	assert.Equal(t, "/ws/.peace", p.PeaceDir)
	assert.Equal(t, "/ws/.peace/myapp", p.PeaceAppDir)
	assert.Empty(t, p.ProfileDir)
	assert.Empty(t, p.FlowDir)
}

func TestDerivePathsSingleProfileSingleFlow(t *testing.T) {
	p := DerivePaths("/ws", "myapp", "dev", itemid.ID("deploy"))
	assert.Equal(t, "/ws/.peace/myapp/dev", p.ProfileDir)
	assert.Equal(t, "/ws/.peace/myapp/dev/.history", p.ProfileHistoryDir)
	assert.Equal(t, "/ws/.peace/myapp/dev/deploy", p.FlowDir)
	assert.Equal(t, filepath.Join(p.FlowDir, "states_current.yaml"), p.StatesCurrentPath())
}

func TestProfileSelectionSpecified(t *testing.T) {
	profiles, err := Specified("prod").Resolve("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod"}, profiles)
}

func TestProfileSelectionFromWorkspaceParamMissing(t *testing.T) {
	_, err := FromWorkspaceParam("profile").Resolve("", "/tmp/workspace_params.yaml", map[string]any{})
	require.Error(t, err)
	var notFound *WorkspaceParamsProfileNone
	assert.ErrorAs(t, err, &notFound)
}

func TestProfileSelectionFromWorkspaceParamPresent(t *testing.T) {
	profiles, err := FromWorkspaceParam("profile").Resolve("", "", map[string]any{"profile": "dev"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, profiles)
}

func TestProfileSelectionFilterFnEnumeratesSubdirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dev"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "prod"), 0o755))

	profiles, err := FilterFn(func(c string) bool { return c == "prod" }).Resolve(dir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod"}, profiles)
}

// testParams/testData/testLoader/intItem mirror the statestore package's
// test fixtures: a trivial Item[int,int,...] used only to exercise the
// builder pipeline end to end.
type testParams struct{}
type testData struct{}
type testLoader struct{}

func (testLoader) LoadData(paramspec.Mode, *resources.Resources) testData { return testData{} }

type intItem struct{}

func (intItem) StateExample(testParams, testData) int { return 0 }
func (intItem) StateClean(paramspec.Partial[testParams], testData) (int, error) {
	return 0, nil
}
func (intItem) TryStateCurrent(context.Context, paramspec.Partial[testParams], testData) (int, bool, error) {
	return 0, false, nil
}
func (intItem) StateCurrent(context.Context, testParams, testData) (int, error) { return 0, nil }
func (intItem) TryStateGoal(context.Context, paramspec.Partial[testParams], testData) (int, bool, error) {
	return 0, false, nil
}
func (intItem) StateGoal(context.Context, testParams, testData) (int, error) { return 0, nil }
func (intItem) StateDiff(paramspec.Partial[testParams], testData, int, int) (int, error) {
	return 0, nil
}
func (intItem) StateEq(a, b int) bool { return a == b }
func (intItem) ApplyCheck(testParams, testData, int, int, int) (itemgraph.ApplyCheck, error) {
	return itemgraph.ExecNotRequired, nil
}
func (intItem) ApplyDry(context.Context, testParams, testData, int, int, int) (int, error) {
	return 0, nil
}
func (intItem) Apply(context.Context, testParams, testData, int, int, int) (int, error) {
	return 0, nil
}

func buildWith(t *testing.T, workspace string, id itemid.ID, spec paramspec.Spec[testParams]) (*CmdCtx, error) {
	t.Helper()
	flow := itemgraph.NewFlow("deploy")
	require.NoError(t, flow.AddItem(itemgraph.NewItemWrapper[int, int, testParams, testData](
		id, intItem{}, testLoader{}, spec)))

	b := NewBuilder("demo", workspace, SingleProfileSingleFlow)
	b.ProfileSelection = Specified("dev")
	b.FlowID = "deploy"
	b.Flow = flow
	b.OutcomeFormat = output.None
	b.Streams = genericiooptions.IOStreams{}
	return b.Build()
}

func TestBuilderReportsRenamedItemWithNoSpecs(t *testing.T) {
	workspace := t.TempDir()
	_, err := buildWith(t, workspace, "original_id", paramspec.SpecValue(testParams{}))
	require.NoError(t, err)

	_, err = buildWith(t, workspace, "new_id", paramspec.SpecStored[testParams]())
	require.Error(t, err)
	var report *paramspec.MismatchReport
	require.ErrorAs(t, err, &report)
	assert.Equal(t, []itemid.ID{"new_id"}, report.ItemIDsWithNoParamsSpecs)
}

func TestBuilderReportsMappingFnNotReSupplied(t *testing.T) {
	workspace := t.TempDir()
	mapping := paramspec.SpecMappingFn(func(any) (testParams, bool) { return testParams{}, true })
	_, err := buildWith(t, workspace, "mock", mapping)
	require.NoError(t, err)

	_, err = buildWith(t, workspace, "mock", paramspec.SpecStored[testParams]())
	require.Error(t, err)
	var report *paramspec.MismatchReport
	require.ErrorAs(t, err, &report)
	assert.Equal(t, []itemid.ID{"mock"}, report.NotUsable)
}

func TestBuilderAdoptsStoredValueSpec(t *testing.T) {
	workspace := t.TempDir()
	_, err := buildWith(t, workspace, "mock", paramspec.SpecValue(testParams{}))
	require.NoError(t, err)

	cc, err := buildWith(t, workspace, "mock", paramspec.SpecStored[testParams]())
	require.NoError(t, err)
	item, ok := cc.Flow.Item("mock")
	require.True(t, ok)
	assert.Equal(t, "value", item.SpecKindName())
}

func TestBuildRejectsMultiProfileScope(t *testing.T) {
	b := NewBuilder("demo", t.TempDir(), MultiProfileNoFlow)
	b.ProfileSelection = FilterFn(func(string) bool { return true })
	b.OutcomeFormat = output.None
	b.Streams = genericiooptions.IOStreams{}

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BuildAll")
}

func TestBuildSingleProfileScopeNeedsExactlyOneProfile(t *testing.T) {
	workspace := t.TempDir()
	appDir := filepath.Join(workspace, ".peace", "demo")
	require.NoError(t, os.MkdirAll(filepath.Join(appDir, "dev"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(appDir, "prod"), 0o755))

	b := NewBuilder("demo", workspace, SingleProfileNoFlow)
	b.ProfileSelection = FilterFn(func(string) bool { return true })
	b.OutcomeFormat = output.None
	b.Streams = genericiooptions.IOStreams{}

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one profile")
}

func TestBuildAllBuildsOneCtxPerProfile(t *testing.T) {
	workspace := t.TempDir()
	appDir := filepath.Join(workspace, ".peace", "demo")
	require.NoError(t, os.MkdirAll(filepath.Join(appDir, "dev"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(appDir, "prod"), 0o755))

	b := NewBuilder("demo", workspace, MultiProfileNoFlow)
	b.ProfileSelection = FilterFn(func(string) bool { return true })
	b.OutcomeFormat = output.None
	b.Streams = genericiooptions.IOStreams{}

	ctxs, err := b.BuildAll()
	require.NoError(t, err)
	require.Len(t, ctxs, 2)
	assert.Equal(t, "dev", ctxs[0].Profile)
	assert.Equal(t, "prod", ctxs[1].Profile)
	assert.NotEqual(t, ctxs[0].Paths.ProfileDir, ctxs[1].Paths.ProfileDir)
}

func TestBuilderBuildSingleProfileSingleFlow(t *testing.T) {
	workspace := t.TempDir()
	flow := itemgraph.NewFlow("deploy")
	require.NoError(t, flow.AddItem(itemgraph.NewItemWrapper[int, int, testParams, testData](
		"mock", intItem{}, testLoader{}, paramspec.SpecValue(testParams{}))))

	b := NewBuilder("demo", workspace, SingleProfileSingleFlow)
	b.ProfileSelection = Specified("dev")
	b.FlowID = "deploy"
	b.Flow = flow
	b.OutcomeFormat = output.None
	b.Streams = genericiooptions.IOStreams{}

	ctx, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "dev", ctx.Profile)
	assert.Contains(t, ctx.Paths.FlowDir, "deploy")
	assert.Len(t, ctx.Trackers, 1)

	_, ok := resources.Borrow[Paths](ctx.Resources)
	assert.True(t, ok)
}

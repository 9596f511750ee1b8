package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/hashmap-kz/peaceflow/internal/exampleitems"
	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
)

const (
	appName = "peaceflow"
	flowID  = itemid.ID("demo")

	vecCopyID  = itemid.ID("vec_copy")
	mockID     = itemid.ID("mock")
	manifestID = itemid.ID("manifest")
)

// commonFlags groups the flags every top-level command accepts: workspace
// location, profile selection and the demo flow's own Params, bound
// together before a command runs.
type commonFlags struct {
	workspaceDir string
	profile      string
	outcome      string

	vecGoal     string
	mockGoal    string
	manifestSrc string
	manifestDst string
}

func (f *commonFlags) registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.workspaceDir, "workspace", ".", "workspace root directory")
	fs.StringVar(&f.profile, "profile", "default", "profile name")
	fs.StringVar(&f.outcome, "output", "text", "outcome format: text|yaml|json|none")
	fs.StringVar(&f.vecGoal, "vec-copy-goal", "", "vec_copy item's goal content")
	fs.StringVar(&f.mockGoal, "mock-goal", "0", "mock item's goal value (0-255)")
	fs.StringVar(&f.manifestSrc, "manifest-source", "", "path or URL of the goal manifest")
	fs.StringVar(&f.manifestDst, "manifest-target", "", "local path the manifest item materializes to")
}

func (f *commonFlags) mockGoalByte() (uint8, error) {
	n, err := strconv.ParseUint(f.mockGoal, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("--mock-goal: %w", err)
	}
	return uint8(n), nil
}

// demoBackends is the standing-in "external system" the demo flow's
// vec_copy and mock items discover from and apply to. Since the example
// items have no real external resource to talk to, their backends are
// persisted as plain files under the flow directory so repeated CLI
// invocations observe each other's applied state, the same way a real
// item's backend (a file, a container, a cloud object) would.
type demoBackends struct {
	vec  *exampleitems.VecCopyBackend
	mock *exampleitems.MockBackend
}

func newDemoBackends() *demoBackends {
	return &demoBackends{vec: &exampleitems.VecCopyBackend{}, mock: &exampleitems.MockBackend{}}
}

func (b *demoBackends) vecCopyPath(flowDir string) string { return filepath.Join(flowDir, "vec_copy.backend") }
func (b *demoBackends) mockPath(flowDir string) string    { return filepath.Join(flowDir, "mock.backend") }

func (b *demoBackends) load(flowDir string) {
	if flowDir == "" {
		return
	}
	if data, err := os.ReadFile(b.vecCopyPath(flowDir)); err == nil {
		b.vec.Set(data)
	}
	if data, err := os.ReadFile(b.mockPath(flowDir)); err == nil && len(data) > 0 {
		b.mock.Set(data[0])
	}
}

func (b *demoBackends) save(flowDir string) error {
	if flowDir == "" {
		return nil
	}
	if err := os.WriteFile(b.vecCopyPath(flowDir), b.vec.Get(), 0o644); err != nil {
		return fmt.Errorf("cmd: writing vec_copy backend: %w", err)
	}
	if err := os.WriteFile(b.mockPath(flowDir), []byte{b.mock.Get()}, 0o644); err != nil {
		return fmt.Errorf("cmd: writing mock backend: %w", err)
	}
	return nil
}

// buildFlow assembles the demo Flow the CLI drives: vec_copy -> mock plus
// a standalone manifest item, each bound to a literal ParamsSpec built
// from flags.
func (f *commonFlags) buildFlow() (*itemgraph.Flow, error) {
	flow := itemgraph.NewFlow(flowID)

	mockGoal, err := f.mockGoalByte()
	if err != nil {
		return nil, err
	}

	vecSpec := paramspec.SpecValue(exampleitems.VecCopyParams{Goal: []byte(f.vecGoal)})
	vecWrapper := itemgraph.NewItemWrapper[[]byte, int, exampleitems.VecCopyParams, exampleitems.VecCopyData](
		vecCopyID, exampleitems.VecCopyItem{}, exampleitems.VecCopyDataLoader{}, vecSpec)
	if err := flow.AddItem(vecWrapper); err != nil {
		return nil, err
	}

	mockSpec := paramspec.SpecValue(exampleitems.MockParams{Goal: mockGoal})
	mockWrapper := itemgraph.NewItemWrapper[uint8, int, exampleitems.MockParams, exampleitems.MockData](
		mockID, exampleitems.MockItem{}, exampleitems.MockDataLoader{}, mockSpec)
	if err := flow.AddItem(mockWrapper); err != nil {
		return nil, err
	}
	if err := flow.AddEdge(vecCopyID, mockID); err != nil {
		return nil, err
	}

	manifestSpec := paramspec.SpecValue(exampleitems.ManifestParams{Source: f.manifestSrc, Target: f.manifestDst})
	manifestWrapper := itemgraph.NewItemWrapper[exampleitems.ManifestState, exampleitems.ManifestDiff, exampleitems.ManifestParams, exampleitems.ManifestData](
		manifestID, exampleitems.ManifestItem{}, exampleitems.ManifestDataLoader{}, manifestSpec)
	if err := flow.AddItem(manifestWrapper); err != nil {
		return nil, err
	}

	return flow, nil
}

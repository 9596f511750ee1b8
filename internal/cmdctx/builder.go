package cmdctx

import (
	"fmt"
	"os"

	"k8s.io/cli-runtime/pkg/genericiooptions"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/output"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/progress"
	"github.com/hashmap-kz/peaceflow/internal/resources"
	"github.com/hashmap-kz/peaceflow/internal/statestore"
)

// CmdCtx is the fully populated context a command executes against.
type CmdCtx struct {
	Scope     Scope
	Paths     Paths
	Profile   string
	Flow      *itemgraph.Flow
	Resources *resources.Resources
	Trackers  map[itemid.ID]*progress.Tracker
	Interrupt *progress.InterruptSignal
	Output    output.Write
}

// Builder composes a CmdCtx. Zero value is not usable; construct with
// NewBuilder.
type Builder struct {
	AppName          string
	WorkspaceDir     string
	Scope            Scope
	ProfileSelection ProfileSelection
	FlowID           itemid.ID
	Flow             *itemgraph.Flow

	WorkspaceParamOverrides map[string]any
	ProfileParamOverrides   map[string]any
	FlowParamOverrides      map[string]any

	OutcomeFormat output.Format
	Streams       genericiooptions.IOStreams
}

// NewBuilder returns a Builder with Text output over os.Stdin/Stdout/Stderr.
func NewBuilder(appName, workspaceDir string, scope Scope) *Builder {
	return &Builder{
		AppName:      appName,
		WorkspaceDir: workspaceDir,
		Scope:        scope,
		Streams:      genericiooptions.IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr},
	}
}

// Build runs the full builder pipeline for the single-profile scopes:
// create directories, load and merge scoped params, resolve the profile
// selection, populate Resources, run each item's Setup, and (for scopes
// with a flow) load persisted state and check params-spec compatibility.
// A selection that resolves to more or fewer profiles than the scope can
// represent is a build error; the multi-profile scopes go through
// BuildAll instead.
func (b *Builder) Build() (*CmdCtx, error) {
	if b.Scope.IsMulti() {
		return nil, fmt.Errorf("cmdctx: scope %s can resolve multiple profiles; use BuildAll", b.Scope)
	}

	profiles, workspaceParams, err := b.resolveProfiles()
	if err != nil {
		return nil, err
	}

	var profile string
	if b.Scope.HasProfile() {
		if len(profiles) != 1 {
			return nil, fmt.Errorf("cmdctx: scope %s needs exactly one profile, selection resolved %d %v",
				b.Scope, len(profiles), profiles)
		}
		profile = profiles[0]
	}
	return b.buildForProfile(profile, workspaceParams)
}

// BuildAll resolves the profile selection once and builds one CmdCtx per
// resolved profile, for the multi-profile scopes. The contexts share the
// Builder's Flow and are meant to be executed one at a time (one command
// per profile), each against its own Resources and profile/flow
// directories. Single-profile scopes fall through to Build.
func (b *Builder) BuildAll() ([]*CmdCtx, error) {
	if !b.Scope.IsMulti() {
		cc, err := b.Build()
		if err != nil {
			return nil, err
		}
		return []*CmdCtx{cc}, nil
	}

	profiles, workspaceParams, err := b.resolveProfiles()
	if err != nil {
		return nil, err
	}
	out := make([]*CmdCtx, 0, len(profiles))
	for _, profile := range profiles {
		cc, err := b.buildForProfile(profile, workspaceParams)
		if err != nil {
			return nil, fmt.Errorf("cmdctx: profile %q: %w", profile, err)
		}
		out = append(out, cc)
	}
	return out, nil
}

// resolveProfiles is the shared prolog of Build/BuildAll: it creates the
// peace_app_dir, loads and merges workspace params, and applies the
// profile selection.
func (b *Builder) resolveProfiles() ([]string, map[string]any, error) {
	if b.Flow == nil {
		b.Flow = itemgraph.NewFlow(b.FlowID)
	}

	peaceAppDirPaths := DerivePaths(b.WorkspaceDir, b.AppName, "", "")
	if err := os.MkdirAll(peaceAppDirPaths.PeaceAppDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("cmdctx: creating %s: %w", peaceAppDirPaths.PeaceAppDir, err)
	}

	workspaceParams, err := statestore.ReadScopedParams(peaceAppDirPaths.WorkspaceParamsPath())
	if err != nil {
		return nil, nil, err
	}
	workspaceParams = statestore.MergeScopedParams(workspaceParams, b.WorkspaceParamOverrides)

	profiles, err := b.ProfileSelection.Resolve(peaceAppDirPaths.PeaceAppDir, peaceAppDirPaths.WorkspaceParamsPath(), workspaceParams)
	if err != nil {
		return nil, nil, err
	}
	return profiles, workspaceParams, nil
}

func (b *Builder) buildForProfile(profile string, workspaceParams map[string]any) (*CmdCtx, error) {
	paths := DerivePaths(b.WorkspaceDir, b.AppName, profile, b.FlowID)
	if paths.ProfileDir != "" {
		if err := os.MkdirAll(paths.ProfileHistoryDir, 0o755); err != nil {
			return nil, fmt.Errorf("cmdctx: creating %s: %w", paths.ProfileHistoryDir, err)
		}
	}
	if paths.FlowDir != "" {
		if err := os.MkdirAll(paths.FlowDir, 0o755); err != nil {
			return nil, fmt.Errorf("cmdctx: creating %s: %w", paths.FlowDir, err)
		}
	}

	r := resources.New()
	resources.Insert(r, paths)
	resources.Insert(r, workspaceParams)

	if paths.ProfileDir != "" {
		profileParams, err := statestore.ReadScopedParams(paths.ProfileParamsPath())
		if err != nil {
			return nil, err
		}
		profileParams = statestore.MergeScopedParams(profileParams, b.ProfileParamOverrides)
		resources.SetNamed(r, "profile_params", itemid.ID(profile), profileParams)
	}

	if paths.FlowDir != "" {
		flowParams, err := statestore.ReadScopedParams(paths.FlowParamsPath())
		if err != nil {
			return nil, err
		}
		flowParams = statestore.MergeScopedParams(flowParams, b.FlowParamOverrides)
		resources.SetNamed(r, "flow_params", b.FlowID, flowParams)
	}

	trackers := make(map[itemid.ID]*progress.Tracker, len(b.Flow.IterInsertion()))
	for _, id := range b.Flow.IterInsertion() {
		item, ok := b.Flow.Item(id)
		if !ok {
			continue
		}
		if err := item.Setup(r); err != nil {
			return nil, fmt.Errorf("cmdctx: item %q setup: %w", id, err)
		}
		trackers[id] = progress.NewTracker(id)
	}

	if b.Scope.HasFlow() {
		if err := b.loadPersistedState(paths, r); err != nil {
			return nil, err
		}
	}

	return &CmdCtx{
		Scope:     b.Scope,
		Paths:     paths,
		Profile:   profile,
		Flow:      b.Flow,
		Resources: r,
		Trackers:  trackers,
		Interrupt: progress.NewInterruptSignal(),
		Output:    output.NewSink(b.Streams, b.OutcomeFormat),
	}, nil
}

func (b *Builder) loadPersistedState(paths Paths, r *resources.Resources) error {
	currentNodes, err := statestore.ReadNodes(paths.StatesCurrentPath())
	if err != nil {
		return err
	}
	if err := statestore.LoadCurrentInto(b.Flow, r, currentNodes); err != nil {
		return err
	}

	goalNodes, err := statestore.ReadNodes(paths.StatesGoalPath())
	if err != nil {
		return err
	}
	if err := statestore.LoadGoalInto(b.Flow, r, goalNodes); err != nil {
		return err
	}

	stored, err := statestore.ReadParamsSpecs(paths.ParamsSpecsPath())
	if err != nil {
		return err
	}
	storedKinds := make(map[itemid.ID]string, len(stored))
	for id, rec := range stored {
		kind := rec.Kind
		if kind == "value" && rec.Params == nil {
			// a value record without its params cannot be reconstructed
			kind = "not_reconstructible"
		}
		storedKinds[id] = kind
	}

	ids := b.Flow.IterInsertion()
	provided := make(map[itemid.ID]string, len(ids))
	for _, id := range ids {
		item, ok := b.Flow.Item(id)
		if !ok {
			continue
		}
		provided[id] = item.SpecKindName()
	}

	merged, report := paramspec.MergeSpecKinds(ids, provided, storedKinds)
	if !report.Empty() {
		return &report
	}

	records := make(map[itemid.ID]statestore.SpecRecord, len(merged))
	for id, kind := range merged {
		item, ok := b.Flow.Item(id)
		if !ok {
			continue
		}
		if provided[id] == "stored" {
			// merge guaranteed a reconstructible stored value spec
			rec := stored[id]
			if err := item.AdoptStoredParams(rec.Params); err != nil {
				return err
			}
			records[id] = rec
			continue
		}
		var params any
		if v, ok := item.SpecParamsForStore(); ok {
			params = v
		}
		rec, err := statestore.NewSpecRecord(kind, params)
		if err != nil {
			return fmt.Errorf("cmdctx: item %q: %w", id, err)
		}
		records[id] = rec
	}
	return statestore.WriteParamsSpecs(paths.ParamsSpecsPath(), records)
}

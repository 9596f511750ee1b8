// Package cmdctx implements the Cmd Context Builder: workspace/
// profile/flow directory derivation, profile selection, and the full
// pipeline that produces a populated CmdContext.
package cmdctx

import (
	"path/filepath"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// Paths holds the derived directories of the on-disk workspace layout.
// Flow-level fields are empty for scopes with no flow (NoProfileNoFlow
// et al).
type Paths struct {
	WorkspaceDir      string
	PeaceDir          string
	PeaceAppDir       string
	ProfileDir        string
	ProfileHistoryDir string
	FlowDir           string
}

// DerivePaths builds the full directory layout for a workspace/app/profile/
// flow combination. profile and flowID may be empty for scopes that omit
// them; callers only read the fields their scope defines.
func DerivePaths(workspaceDir, appName, profile string, flowID itemid.ID) Paths {
	peaceDir := filepath.Join(workspaceDir, ".peace")
	peaceAppDir := filepath.Join(peaceDir, appName)

	p := Paths{
		WorkspaceDir: workspaceDir,
		PeaceDir:     peaceDir,
		PeaceAppDir:  peaceAppDir,
	}
	if profile == "" {
		return p
	}
	p.ProfileDir = filepath.Join(peaceAppDir, profile)
	p.ProfileHistoryDir = filepath.Join(p.ProfileDir, ".history")
	if flowID == "" {
		return p
	}
	p.FlowDir = filepath.Join(p.ProfileDir, string(flowID))
	return p
}

// WorkspaceParamsPath/ProfileParamsPath/FlowParamsPath/ParamsSpecsPath/
// StatesCurrentPath/StatesGoalPath name the per-scope state and params files.
func (p Paths) WorkspaceParamsPath() string { return filepath.Join(p.PeaceAppDir, "workspace_params.yaml") }
func (p Paths) ProfileParamsPath() string   { return filepath.Join(p.ProfileDir, "profile_params.yaml") }
func (p Paths) FlowParamsPath() string      { return filepath.Join(p.FlowDir, "flow_params.yaml") }
func (p Paths) ParamsSpecsPath() string     { return filepath.Join(p.FlowDir, "params_specs.yaml") }
func (p Paths) StatesCurrentPath() string   { return filepath.Join(p.FlowDir, "states_current.yaml") }
func (p Paths) StatesGoalPath() string      { return filepath.Join(p.FlowDir, "states_goal.yaml") }

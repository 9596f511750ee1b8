package cmdctx

import (
	"fmt"
	"os"
	"path/filepath"
)

// SelectionKind names a ProfileSelection variant.
type SelectionKind int

const (
	SelectionNotSelected SelectionKind = iota
	SelectionSpecified
	SelectionFromWorkspaceParam
	SelectionFilterFn
)

// ProfileSelection describes how the builder resolves which profile(s) to
// use.
type ProfileSelection struct {
	kind              SelectionKind
	specified         string
	workspaceParamKey string
	filter            func(candidate string) bool
}

// Specified pins the profile to p.
func Specified(p string) ProfileSelection {
	return ProfileSelection{kind: SelectionSpecified, specified: p}
}

// FromWorkspaceParam reads workspace_params[key] as the profile name.
func FromWorkspaceParam(key string) ProfileSelection {
	return ProfileSelection{kind: SelectionFromWorkspaceParam, workspaceParamKey: key}
}

// FilterFn enumerates peace_app_dir subdirectories as candidate profiles
// and keeps the ones f accepts.
func FilterFn(f func(candidate string) bool) ProfileSelection {
	return ProfileSelection{kind: SelectionFilterFn, filter: f}
}

// NotSelected means the command's scope has no profile at all
// (NoProfileNoFlow).
func NotSelected() ProfileSelection {
	return ProfileSelection{kind: SelectionNotSelected}
}

// WorkspaceParamsProfileNone is returned when FromWorkspaceParam's key is
// absent from workspace_params.yaml.
type WorkspaceParamsProfileNone struct {
	Path string
	Key  string
}

func (e *WorkspaceParamsProfileNone) Error() string {
	return fmt.Sprintf("cmdctx: workspace_params.yaml at %s has no value for key %q", e.Path, e.Key)
}

// Resolve applies the selection, returning the chosen profile name(s).
// workspaceParams is the already-loaded workspace_params.yaml content;
// workspaceParamsPath is only used to name the offending file on failure.
func (ps ProfileSelection) Resolve(peaceAppDir, workspaceParamsPath string, workspaceParams map[string]any) ([]string, error) {
	switch ps.kind {
	case SelectionNotSelected:
		return nil, nil
	case SelectionSpecified:
		return []string{ps.specified}, nil
	case SelectionFromWorkspaceParam:
		v, ok := workspaceParams[ps.workspaceParamKey]
		if !ok {
			return nil, &WorkspaceParamsProfileNone{Path: workspaceParamsPath, Key: ps.workspaceParamKey}
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, &WorkspaceParamsProfileNone{Path: workspaceParamsPath, Key: ps.workspaceParamKey}
		}
		return []string{s}, nil
	case SelectionFilterFn:
		entries, err := os.ReadDir(peaceAppDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("cmdctx: listing %s: %w", peaceAppDir, err)
		}
		var out []string
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := filepath.Base(e.Name())
			if ps.filter == nil || ps.filter(name) {
				out = append(out, name)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cmdctx: unknown profile selection kind %d", ps.kind)
	}
}

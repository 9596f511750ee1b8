package exampleitems

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/paramspec"
	"github.com/hashmap-kz/peaceflow/internal/resolve"
	"github.com/hashmap-kz/peaceflow/internal/resources"
	"github.com/hashmap-kz/peaceflow/internal/utils"
)

// ManifestParams is manifest's params: where to read the goal manifest
// from (a local path or URL) and the local path its materialized copy is
// tracked at.
type ManifestParams struct {
	Source string
	Target string
}

// ManifestData is empty: manifest has no declared dependency on a
// predecessor's state, only on its own Source/Target params.
type ManifestData struct{}

// ManifestDataLoader is a no-op DataLoader for ManifestItem.
type ManifestDataLoader struct{}

func (ManifestDataLoader) LoadData(paramspec.Mode, *resources.Resources) ManifestData {
	return ManifestData{}
}

// ManifestState is the normalized set of decoded objects at rest, keyed by
// kind/name so two manifests with the same objects in a different
// document order compare equal.
type ManifestState struct {
	Objects map[string]map[string]interface{}
}

// ManifestDiff summarizes the object-level change between two
// ManifestStates.
type ManifestDiff struct {
	Added, Removed, Changed []string
}

// ManifestItem is a file-resource item: it discovers the objects currently
// materialized at Target, diffs them against the objects declared at
// Source, and applies by writing Source's (normalized) objects to Target.
type ManifestItem struct{}

func (ManifestItem) StateExample(_ ManifestParams, _ ManifestData) ManifestState {
	return ManifestState{Objects: map[string]map[string]interface{}{
		"ConfigMap/example": {"apiVersion": "v1", "kind": "ConfigMap", "metadata": map[string]interface{}{"name": "example"}},
	}}
}

func (ManifestItem) StateClean(_ paramspec.Partial[ManifestParams], _ ManifestData) (ManifestState, error) {
	return ManifestState{}, nil
}

func readManifestState(path string) (ManifestState, bool, error) {
	if path == "" {
		return ManifestState{}, false, nil
	}
	b, err := resolve.ReadFileContent(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ManifestState{}, false, nil
		}
		return ManifestState{}, false, fmt.Errorf("exampleitems: reading manifest %s: %w", path, err)
	}
	objs, err := utils.ReadObjects(bytes.NewReader(b))
	if err != nil {
		return ManifestState{}, false, fmt.Errorf("exampleitems: decoding manifest %s: %w", path, err)
	}
	return newManifestState(objs), true, nil
}

func newManifestState(objs []map[string]interface{}) ManifestState {
	out := make(map[string]map[string]interface{}, len(objs))
	for _, raw := range objs {
		u := &unstructured.Unstructured{Object: raw}
		stripManifestMeta(u.Object)
		out[fmt.Sprintf("%s/%s", u.GetKind(), u.GetName())] = u.Object
	}
	return ManifestState{Objects: out}
}

// stripManifestMeta removes fields that should not be compared between the
// discovered and goal state: status and the fields a real API server would
// stamp on.
func stripManifestMeta(o map[string]interface{}) {
	delete(o, "status")
	if m, ok := o["metadata"].(map[string]interface{}); ok {
		for _, k := range []string{"managedFields", "resourceVersion", "uid", "creationTimestamp"} {
			delete(m, k)
		}
	}
}

func (ManifestItem) TryStateCurrent(_ context.Context, partial paramspec.Partial[ManifestParams], _ ManifestData) (ManifestState, bool, error) {
	v, ok := partial.Get("Target")
	if !ok {
		return ManifestState{}, false, nil
	}
	target, _ := v.(string)
	return readManifestState(target)
}

func (ManifestItem) StateCurrent(_ context.Context, params ManifestParams, _ ManifestData) (ManifestState, error) {
	state, _, err := readManifestState(params.Target)
	return state, err
}

func (ManifestItem) TryStateGoal(_ context.Context, partial paramspec.Partial[ManifestParams], _ ManifestData) (ManifestState, bool, error) {
	v, ok := partial.Get("Source")
	if !ok {
		return ManifestState{}, false, nil
	}
	source, _ := v.(string)
	return readManifestState(source)
}

func (ManifestItem) StateGoal(_ context.Context, params ManifestParams, _ ManifestData) (ManifestState, error) {
	state, _, err := readManifestState(params.Source)
	return state, err
}

func (ManifestItem) StateDiff(_ paramspec.Partial[ManifestParams], _ ManifestData, current, goal ManifestState) (ManifestDiff, error) {
	var diff ManifestDiff
	for key, obj := range goal.Objects {
		cur, ok := current.Objects[key]
		switch {
		case !ok:
			diff.Added = append(diff.Added, key)
		case !reflect.DeepEqual(cur, obj):
			diff.Changed = append(diff.Changed, key)
		}
	}
	for key := range current.Objects {
		if _, ok := goal.Objects[key]; !ok {
			diff.Removed = append(diff.Removed, key)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff, nil
}

func (ManifestItem) StateEq(a, b ManifestState) bool {
	return reflect.DeepEqual(a.Objects, b.Objects)
}

func (ManifestItem) ApplyCheck(_ ManifestParams, _ ManifestData, _, _ ManifestState, diff ManifestDiff) (itemgraph.ApplyCheck, error) {
	total := len(diff.Added) + len(diff.Removed) + len(diff.Changed)
	if total == 0 {
		return itemgraph.ExecNotRequired, nil
	}
	return itemgraph.ExecRequired(itemgraph.ProgressLimit{Kind: itemgraph.LimitSteps, N: uint64(total)}), nil
}

func (ManifestItem) ApplyDry(_ context.Context, _ ManifestParams, _ ManifestData, _, goal ManifestState, _ ManifestDiff) (ManifestState, error) {
	return goal, nil
}

func (ManifestItem) Apply(_ context.Context, params ManifestParams, _ ManifestData, _, goal ManifestState, _ ManifestDiff) (ManifestState, error) {
	if params.Target == "" {
		return ManifestState{}, fmt.Errorf("exampleitems: manifest item has no target path to apply to")
	}
	if err := writeManifestState(params.Target, goal); err != nil {
		return ManifestState{}, err
	}
	return goal, nil
}

func writeManifestState(path string, state ManifestState) error {
	keys := make([]string, 0, len(state.Objects))
	for k := range state.Objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("---\n")
		}
		enc, err := yaml.Marshal(state.Objects[k])
		if err != nil {
			return fmt.Errorf("exampleitems: encoding manifest object %s: %w", k, err)
		}
		b.Write(enc)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

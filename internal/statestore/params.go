package statestore

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// SpecRecord is one item's persisted ParamsSpec:
// its kind name, plus the params value itself when the kind is
// reconstructible from YAML. Value specs round-trip; mapping-fn and
// field-wise specs carry functions, so only their kind is recorded and a
// later build must re-supply them.
type SpecRecord struct {
	Kind   string     `yaml:"kind"`
	Params *yaml.Node `yaml:"params,omitempty"`
}

// NewSpecRecord builds a SpecRecord, encoding params when non-nil.
func NewSpecRecord(kind string, params any) (SpecRecord, error) {
	rec := SpecRecord{Kind: kind}
	if params != nil {
		node := &yaml.Node{}
		if err := node.Encode(params); err != nil {
			return rec, fmt.Errorf("statestore: encoding params spec: %w", err)
		}
		rec.Params = node
	}
	return rec, nil
}

// ReadParamsSpecs reads params_specs.yaml: a mapping of item id to the
// spec that last resolved successfully for it. Absence is an empty map.
func ReadParamsSpecs(path string) (map[itemid.ID]SpecRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[itemid.ID]SpecRecord{}, nil
		}
		return nil, fmt.Errorf("statestore: reading %s: %w", path, err)
	}
	// yaml.v3 fills a yaml.Node value field with the raw subtree, but not a
	// *yaml.Node one, so decode through a value-typed mirror of SpecRecord.
	raw := map[string]struct {
		Kind   string    `yaml:"kind"`
		Params yaml.Node `yaml:"params"`
	}{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("statestore: parsing %s: %w", path, err)
	}
	out := make(map[itemid.ID]SpecRecord, len(raw))
	for k, v := range raw {
		rec := SpecRecord{Kind: v.Kind}
		if v.Params.Kind != 0 {
			params := v.Params
			rec.Params = &params
		}
		out[itemid.ID(k)] = rec
	}
	return out, nil
}

// WriteParamsSpecs writes params_specs.yaml, sorted by item id.
func WriteParamsSpecs(path string, specs map[itemid.ID]SpecRecord) error {
	ids := make([]string, 0, len(specs))
	for id := range specs {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range ids {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: id}
		valNode := &yaml.Node{}
		if err := valNode.Encode(specs[itemid.ID(id)]); err != nil {
			return fmt.Errorf("statestore: encoding spec for %s: %w", id, err)
		}
		mapping.Content = append(mapping.Content, keyNode, valNode)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("statestore: marshaling %s: %w", path, err)
	}
	return atomicWrite(path, out)
}

// ReadScopedParams reads a workspace_params.yaml / profile_params.yaml /
// flow_params.yaml file: an untyped mapping of user-defined param keys to
// values, merged into Resources by the CmdContext builder. Absence is an
// empty map.
func ReadScopedParams(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("statestore: reading %s: %w", path, err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("statestore: parsing %s: %w", path, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// WriteScopedParams writes a scoped params file, sorted by key.
func WriteScopedParams(path string, params map[string]any) error {
	node := &yaml.Node{Kind: yaml.MappingNode}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		valNode := &yaml.Node{}
		if err := valNode.Encode(params[k]); err != nil {
			return fmt.Errorf("statestore: encoding %s: %w", k, err)
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{node}}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("statestore: marshaling %s: %w", path, err)
	}
	return atomicWrite(path, out)
}

// MergeScopedParams applies overrides onto base: insertion for new keys,
// replacement for existing ones, and erasure when an override value is nil.
func MergeScopedParams(base, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

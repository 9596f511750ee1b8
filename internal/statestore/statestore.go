// Package statestore implements the persistence layer: YAML state
// files, sorted by item id, written atomically via write-temp-then-rename,
// read with absent-file-as-empty-map semantics.
package statestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hashmap-kz/peaceflow/internal/itemgraph"
	"github.com/hashmap-kz/peaceflow/internal/itemid"
	"github.com/hashmap-kz/peaceflow/internal/resources"
)

// ReadNodes reads a top-level YAML mapping file into item-id-keyed nodes,
// deferring decode of each value to its owning item (the flow is the
// runtime type registry: f.Item(id) knows the concrete State type).
// A missing file is treated as an empty map, not an error.
func ReadNodes(path string) (map[itemid.ID]*yaml.Node, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[itemid.ID]*yaml.Node{}, nil
		}
		return nil, fmt.Errorf("statestore: reading %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("statestore: parsing %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return map[itemid.ID]*yaml.Node{}, nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("statestore: %s: expected a top-level mapping", path)
	}

	out := make(map[itemid.ID]*yaml.Node, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		val := mapping.Content[i+1]
		out[itemid.ID(key.Value)] = val
	}
	return out, nil
}

// LoadCurrentInto decodes nodes (as read by ReadNodes from states_current.yaml)
// into each named item's stored-current slot, via the item's own
// LoadStoredCurrent so the concrete State type never needs naming here.
// Node ids with no matching item in the flow (a previous run's item no
// longer declared) are ignored.
func LoadCurrentInto(f *itemgraph.Flow, r *resources.Resources, nodes map[itemid.ID]*yaml.Node) error {
	for id, node := range nodes {
		item, ok := f.Item(id)
		if !ok {
			continue
		}
		if err := item.LoadStoredCurrent(r, node); err != nil {
			return err
		}
	}
	return nil
}

// LoadGoalInto is LoadCurrentInto for states_goal.yaml.
func LoadGoalInto(f *itemgraph.Flow, r *resources.Resources, nodes map[itemid.ID]*yaml.Node) error {
	for id, node := range nodes {
		item, ok := f.Item(id)
		if !ok {
			continue
		}
		if err := item.LoadStoredGoal(r, node); err != nil {
			return err
		}
	}
	return nil
}

// WriteCurrent serializes every flow item's discovered current state
// (ModeCurrent slot) to path, sorted by item id, via write-temp-then-rename.
// Items with no populated slot (never discovered, this run or a prior one)
// are omitted, which is how the on-disk map stays an accurate "what do we
// actually know" snapshot rather than padding it with absent markers.
func WriteCurrent(path string, f *itemgraph.Flow, r *resources.Resources) error {
	values := map[itemid.ID]any{}
	for _, id := range f.IterInsertion() {
		item, ok := f.Item(id)
		if !ok {
			continue
		}
		if v, ok := item.DiscoveredCurrent(r); ok {
			values[id] = v
		}
	}
	return writeSortedMap(path, values)
}

// WriteGoal is WriteCurrent for states_goal.yaml.
func WriteGoal(path string, f *itemgraph.Flow, r *resources.Resources) error {
	values := map[itemid.ID]any{}
	for _, id := range f.IterInsertion() {
		item, ok := f.Item(id)
		if !ok {
			continue
		}
		if v, ok := item.DiscoveredGoal(r); ok {
			values[id] = v
		}
	}
	return writeSortedMap(path, values)
}

func writeSortedMap(path string, values map[itemid.ID]any) error {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range ids {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: id}
		valNode := &yaml.Node{}
		if err := valNode.Encode(values[itemid.ID(id)]); err != nil {
			return fmt.Errorf("statestore: encoding %s: %w", id, err)
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

// atomicWrite writes data to a sibling temp file, fsyncs it, then renames
// it over path -- atomic on the same filesystem.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("statestore: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("statestore: creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("statestore: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("statestore: syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("statestore: closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("statestore: renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

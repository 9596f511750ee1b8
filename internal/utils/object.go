// Package utils holds small decoding helpers shared by the example items
// and the CLI layer that are not specific to any one item's State type.
package utils

import (
	"io"

	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

// ReadObjects decodes a multi-document YAML or JSON stream into a slice of
// generic maps, dropping any document that does not look like a resource
// manifest (it must declare both apiVersion and kind). This mirrors
// kubectl apply's own tolerance of stray/invalid documents in a manifest
// file: rather than failing the whole read, the offending document is
// silently skipped.
func ReadObjects(r io.Reader) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	stream := utilyaml.NewYAMLOrJSONDecoder(r, 4096)
	for {
		var obj map[string]interface{}
		if err := stream.Decode(&obj); err != nil {
			if err.Error() == "EOF" {
				break
			}
			return nil, err
		}
		if len(obj) == 0 {
			continue
		}
		if _, ok := obj["apiVersion"]; !ok {
			continue
		}
		if _, ok := obj["kind"]; !ok {
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

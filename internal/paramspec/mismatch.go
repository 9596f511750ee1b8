package paramspec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// MismatchReport is the categorized build-time failure of the params-spec
// merge: every item in a flow must resolve to a valid ParamsSpec before
// execution, or the CmdContext build fails with this report.
type MismatchReport struct {
	ItemIDsWithNoParamsSpecs []itemid.ID
	ProvidedMismatches       map[itemid.ID]string
	StoredMismatches         map[itemid.ID]string
	NotUsable                []itemid.ID
}

// Empty reports whether the report carries no failures at all.
func (r MismatchReport) Empty() bool {
	return len(r.ItemIDsWithNoParamsSpecs) == 0 &&
		len(r.ProvidedMismatches) == 0 &&
		len(r.StoredMismatches) == 0 &&
		len(r.NotUsable) == 0
}

func (r MismatchReport) Error() string {
	var b strings.Builder
	b.WriteString("params specs mismatch:")
	if len(r.ItemIDsWithNoParamsSpecs) > 0 {
		ids := make([]string, len(r.ItemIDsWithNoParamsSpecs))
		for i, id := range r.ItemIDsWithNoParamsSpecs {
			ids[i] = string(id)
		}
		sort.Strings(ids)
		fmt.Fprintf(&b, " no_params_specs=%v", ids)
	}
	if len(r.NotUsable) > 0 {
		ids := make([]string, len(r.NotUsable))
		for i, id := range r.NotUsable {
			ids[i] = string(id)
		}
		sort.Strings(ids)
		fmt.Fprintf(&b, " not_usable=%v", ids)
	}
	return b.String()
}

// MergeSpecKinds implements the provided-vs-stored merge rule at the
// kind-name level: provided wins over stored; a provided "stored" kind is
// a request to reuse the persisted spec, so it defers to the stored
// registry. Only a
// stored "value" spec can be reconstructed from persisted YAML; stored
// mapping_fn and field_wise specs carry functions and must be re-supplied,
// so deferring to one of those makes the item not usable. An item present
// in neither registry has no params specs at all.
func MergeSpecKinds(itemIDs []itemid.ID, provided, stored map[itemid.ID]string) (map[itemid.ID]string, MismatchReport) {
	merged := make(map[itemid.ID]string, len(itemIDs))
	var report MismatchReport
	report.ProvidedMismatches = map[itemid.ID]string{}
	report.StoredMismatches = map[itemid.ID]string{}

	for _, id := range itemIDs {
		p, hasP := provided[id]
		s, hasS := stored[id]

		switch {
		case hasP && p != "stored":
			merged[id] = p
		case hasS && s == "value":
			merged[id] = s
		case hasS:
			report.NotUsable = append(report.NotUsable, id)
		default:
			report.ItemIDsWithNoParamsSpecs = append(report.ItemIDsWithNoParamsSpecs, id)
		}
	}
	return merged, report
}

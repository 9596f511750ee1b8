package itemgraph

import (
	"fmt"
)

// Bucket names the staleness classification of one item under one
// direction. AbsentBoth is the only non-stale bucket that is ever
// materialized; "both present and equal" never produces an entry at all.
type Bucket int

const (
	BucketAbsentBoth Bucket = iota
	BucketOnlyStored
	BucketOnlyDiscovered
	BucketValuesDiffer
)

func (b Bucket) String() string {
	switch b {
	case BucketAbsentBoth:
		return "absent-both"
	case BucketOnlyStored:
		return "only-stored"
	case BucketOnlyDiscovered:
		return "only-discovered"
	case BucketValuesDiffer:
		return "values-differ"
	default:
		return "unknown"
	}
}

// Classification is the per-item result of comparing a stored state
// against a freshly discovered one.
type Classification struct {
	Bucket     Bucket
	Stored     string
	Discovered string
}

func (c Classification) String() string {
	switch c.Bucket {
	case BucketOnlyStored:
		return fmt.Sprintf("only-stored(%s)", c.Stored)
	case BucketOnlyDiscovered:
		return fmt.Sprintf("only-discovered(%s)", c.Discovered)
	case BucketValuesDiffer:
		return fmt.Sprintf("values-differ(stored:%s, discovered:%s)", c.Stored, c.Discovered)
	default:
		return c.Bucket.String()
	}
}

// StoredCurrentNS / StoredGoalNS hold the states loaded from
// states_current.yaml / states_goal.yaml before any discovery has run in
// this process, so staleness can be judged against what was last persisted.
// The state store package populates these namespaces via resources.SetNamed
// while reading a CmdContext's persisted files.
const (
	StoredCurrentNS = "stored:current"
	StoredGoalNS    = "stored:goal"
)

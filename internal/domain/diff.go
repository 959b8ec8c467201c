package domain

import "fmt"

// AttributeDiff holds one differing attribute of a topic, cluster value first.
// A nil Local means the attribute is unset in the local declaration.
type AttributeDiff struct {
	Cluster any
	Local   any
}

// Change is one entry of a TopicDiff in inspection order.
type Change struct {
	Name    string
	Cluster any
	Local   any
}

// TopicDiff is a field-level diff between a cluster topic and a local
// declaration. Entries keep the insertion order of the fields inspected.
type TopicDiff struct {
	order []string
	diffs map[string]AttributeDiff
}

// NewTopicDiff creates an empty diff.
func NewTopicDiff() *TopicDiff {
	return &TopicDiff{diffs: map[string]AttributeDiff{}}
}

// invalidChanges are attributes that cannot be altered on a live topic.
var invalidChanges = []string{"num_partitions", "replication_factor"}

// Set records a difference between the cluster and local value of one
// attribute. Equal values are skipped. A nil local value is recorded as an
// unset-vs-set difference. When the cluster value is a string, the local
// value is normalized to a string first so that declarations using ints for
// numeric config values still compare correctly. Returns the diff for
// chaining.
func (d *TopicDiff) Set(name string, cluster, local any) *TopicDiff {
	if _, isString := cluster.(string); isString && local != nil {
		if _, ok := local.(string); !ok {
			local = fmt.Sprint(local)
		}
	}
	if cluster == local {
		return d
	}
	if _, seen := d.diffs[name]; !seen {
		d.order = append(d.order, name)
	}
	d.diffs[name] = AttributeDiff{Cluster: cluster, Local: local}
	return d
}

// HasChanges reports whether any attribute differs.
func (d *TopicDiff) HasChanges() bool {
	return len(d.diffs) > 0
}

// IsValid reports whether the diff contains only attributes that can be
// applied to a live topic. Partition count and replication factor cannot.
func (d *TopicDiff) IsValid() bool {
	for _, name := range invalidChanges {
		if _, ok := d.diffs[name]; ok {
			return false
		}
	}
	return true
}

// Get returns the recorded difference for one attribute.
func (d *TopicDiff) Get(name string) (AttributeDiff, bool) {
	ad, ok := d.diffs[name]
	return ad, ok
}

// Changes returns all differences in the order their attributes were
// inspected.
func (d *TopicDiff) Changes() []Change {
	out := make([]Change, 0, len(d.order))
	for _, name := range d.order {
		ad := d.diffs[name]
		out = append(out, Change{Name: name, Cluster: ad.Cluster, Local: ad.Local})
	}
	return out
}

// Len returns the number of differing attributes.
func (d *TopicDiff) Len() int {
	return len(d.diffs)
}

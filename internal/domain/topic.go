// Package domain defines the core entities for topic reconciliation: topics,
// partitions, watermarks, topic diffs, and the abstractions over a Kafka
// cluster client that the rest of the application depends on.
package domain

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Watermark holds the offset range of a partition. Low is the oldest retained
// offset, High is one past the most recently written record.
type Watermark struct {
	Low  int64
	High int64
}

// Partition is a point-in-time snapshot of one partition of a cluster topic.
// It is immutable once constructed and owned by its parent Topic.
type Partition struct {
	ID        int32
	Watermark Watermark
	ISR       []int32
	Leader    int32
	Replicas  []int32

	// LatestTimestamp is the timestamp of the record at High-1.
	// It is the zero time when the partition is empty (High == Low).
	LatestTimestamp time.Time
}

// IsEmpty reports whether the partition holds no records.
func (p Partition) IsEmpty() bool {
	return p.Watermark.High <= p.Watermark.Low
}

// Topic represents a Kafka topic, either declared locally or synced from the
// cluster. A local declaration carries the desired partition count,
// replication factor and config; a cluster sync replaces those with live
// per-partition data in a single fetch cycle and flips IsOnlyLocal to false.
type Topic struct {
	Name   string
	Config map[string]string

	// DeclaredPartitions and DeclaredReplicationFactor hold the local
	// declaration; zero or negative means unset, to be filled from
	// controller defaults on create. Once synced from the cluster the
	// live values win.
	DeclaredPartitions        int32
	DeclaredReplicationFactor int16

	// PartitionData is populated by a cluster sync, ordered by partition id.
	PartitionData []Partition

	IsOnlyLocal bool
}

// NewLocalTopic creates a bare local topic declaration that has never been
// synced from the cluster.
func NewLocalTopic(name string) *Topic {
	return &Topic{
		Name:        name,
		Config:      map[string]string{},
		IsOnlyLocal: true,
	}
}

// NumPartitions returns the declared partition count for local topics and the
// live partition count for cluster-synced ones.
func (t *Topic) NumPartitions() int32 {
	if t.IsOnlyLocal {
		return t.DeclaredPartitions
	}
	return int32(len(t.PartitionData))
}

// ReplicationFactor returns the declared replication factor for local topics
// and the replica count of the first partition for cluster-synced ones.
func (t *Topic) ReplicationFactor() int16 {
	if t.IsOnlyLocal {
		return t.DeclaredReplicationFactor
	}
	if len(t.PartitionData) == 0 {
		return 0
	}
	return int16(len(t.PartitionData[0].Replicas))
}

// Partitions returns the partition snapshots of a cluster-synced topic.
func (t *Topic) Partitions() []Partition {
	return t.PartitionData
}

// PartitionIDs returns the ids of all partitions, ascending.
func (t *Topic) PartitionIDs() []int32 {
	ids := make([]int32, 0, len(t.PartitionData))
	for _, p := range t.PartitionData {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Offsets returns the watermark of every partition, keyed by partition id.
func (t *Topic) Offsets() map[int32]Watermark {
	out := make(map[int32]Watermark, len(t.PartitionData))
	for _, p := range t.PartitionData {
		out[p.ID] = p.Watermark
	}
	return out
}

type topicFile struct {
	Name              string            `yaml:"name,omitempty"`
	NumPartitions     int32             `yaml:"num_partitions,omitempty"`
	ReplicationFactor int16             `yaml:"replication_factor,omitempty"`
	Config            map[string]string `yaml:"config,omitempty"`
}

// ToYAML renders the topic as a declarative YAML document. With onlyEditable
// set, only the config section is emitted.
func (t *Topic) ToYAML(onlyEditable bool) (string, error) {
	f := topicFile{Config: t.Config}
	if !onlyEditable {
		f.Name = t.Name
		f.NumPartitions = t.NumPartitions()
		f.ReplicationFactor = t.ReplicationFactor()
	}
	b, err := yaml.Marshal(&f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TopicFromYAML parses a declarative topic file into a local topic.
func TopicFromYAML(data string) (*Topic, error) {
	var f topicFile
	if err := yaml.Unmarshal([]byte(data), &f); err != nil {
		return nil, err
	}
	if f.Name == "" {
		return nil, fmt.Errorf("topic declaration has no name")
	}
	t := NewLocalTopic(f.Name)
	t.DeclaredPartitions = f.NumPartitions
	t.DeclaredReplicationFactor = f.ReplicationFactor
	if f.Config != nil {
		t.Config = f.Config
	}
	return t, nil
}

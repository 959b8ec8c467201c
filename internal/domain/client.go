package domain

import (
	"context"
	"time"

	"github.com/Temikus/esque/internal/config"
)

// View selects which of the two independently cached client connections a
// metadata read goes through. The admin view serves topic metadata and
// configs, the consumer view serves watermarks. No synchronization is
// attempted between the two; staleness up to either client's refresh
// interval is an accepted limitation.
type View int

const (
	ViewAdmin View = iota
	ViewConsumer
)

// OffsetBeginning opens a partition consumer at the oldest retained offset.
const OffsetBeginning int64 = -2

// Message is one record consumed from a partition.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
	Key       []byte
	Value     []byte
}

// PartitionMetadata is the admin-side view of one partition.
type PartitionMetadata struct {
	ID       int32
	Leader   int32
	Replicas []int32
	ISR      []int32
}

// TopicMetadata is the admin-side view of one topic, partitions ordered by id.
type TopicMetadata struct {
	Name       string
	Partitions []PartitionMetadata
}

// Broker identifies one broker of the cluster.
type Broker struct {
	ID   int32
	Host string
	Port int32
}

// PartitionConsumer consumes messages from exactly one partition of one
// topic. It never commits offsets.
type PartitionConsumer interface {
	// ConsumeOne returns the next message, ErrEmptyPoll if none arrived
	// within the timeout, or ErrEndOfPartition once the end offset
	// captured at open has been reached.
	ConsumeOne(ctx context.Context, timeout time.Duration) (Message, error)
	Close()
}

// ClusterClient is the facade over the two client connections to one
// cluster: the admin capability (metadata, configs, mutations) and the
// consumer capability (watermarks, per-partition consumers).
type ClusterClient interface {
	// TopicNames lists all topic names known to the selected view,
	// including internal ones.
	TopicNames(ctx context.Context, view View) ([]string, error)

	// TopicMetadata fetches per-partition leader/replica/ISR metadata,
	// returning ErrTopicNotFound if the cluster does not know the topic.
	TopicMetadata(ctx context.Context, view View, topic string) (TopicMetadata, error)

	// DescribeTopicConfig fetches the live configuration of a topic.
	DescribeTopicConfig(ctx context.Context, topic string) (map[string]string, error)

	// CreateTopic submits a create request and waits for it to complete.
	CreateTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16, config map[string]string) error

	// AlterTopicConfigs submits a config alteration and waits for it to
	// complete.
	AlterTopicConfigs(ctx context.Context, topic string, config map[string]string) error

	// DeleteTopic submits a deletion and waits for it to complete.
	DeleteTopic(ctx context.Context, topic string) error

	// StartOffsets returns the low watermark of every partition of a
	// topic, through the consumer view.
	StartOffsets(ctx context.Context, topic string) (map[int32]int64, error)

	// EndOffsets returns the high watermark of every partition of a
	// topic, through the consumer view.
	EndOffsets(ctx context.Context, topic string) (map[int32]int64, error)

	// NewPartitionConsumer opens a consumer bound to one partition,
	// positioned at the given offset or at OffsetBeginning.
	NewPartitionConsumer(ctx context.Context, groupID, topic string, partition int32, at int64) (PartitionConsumer, error)

	// InvalidateMetadataCache forces a metadata refresh on both
	// underlying connections so the next read reflects the latest
	// cluster state.
	InvalidateMetadataCache()

	// Brokers lists the brokers of the cluster, sorted by id.
	Brokers(ctx context.Context) ([]Broker, error)

	Close()
}

// ClientFactory creates cluster clients from context configuration.
type ClientFactory interface {
	CreateClient(cfg config.ContextConfig) (ClusterClient, error)
}

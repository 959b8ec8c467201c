// Package application contains the topic controller: the orchestration layer
// that reconciles locally declared topics against live cluster state,
// resolves offsets by timestamp and diffs declarations against the cluster.
package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Temikus/esque/internal/config"
	"github.com/Temikus/esque/internal/domain"
	"github.com/Temikus/esque/internal/utils"
)

const (
	// internalTopicPrefix marks broker-internal topics such as
	// __consumer_offsets.
	internalTopicPrefix = "__"

	// consumeTimeout bounds every single poll of a partition consumer.
	consumeTimeout = 10 * time.Second

	// maxConsumeRetries bounds how many consecutive empty polls a
	// timestamp scan tolerates per partition before giving up on it.
	maxConsumeRetries = 5
)

// TopicController orchestrates topic operations against one cluster. It owns
// no long-lived state beyond the client facade and the context defaults; all
// topic values are produced fresh per call.
type TopicController struct {
	client domain.ClusterClient
	cfg    config.ContextConfig
}

// NewTopicController creates a controller for the given cluster client and
// context configuration.
func NewTopicController(client domain.ClusterClient, cfg config.ContextConfig) *TopicController {
	return &TopicController{client: client, cfg: cfg}
}

// ListOptions controls ListTopics filtering and the shape of its results.
type ListOptions struct {
	// Search keeps only names matching this regular expression, anchored
	// at the start of the name. Empty keeps everything.
	Search string
	// Sort orders the results alphabetically.
	Sort bool
	// HideInternal drops names with the reserved internal prefix.
	HideInternal bool
	// FetchObjects syncs every result from the cluster. Far more
	// expensive: one config call plus up to one per-partition record
	// read per topic. When false, bare local declarations are returned.
	FetchObjects bool
}

// DefaultListOptions mirrors the defaults of the list operation: sorted,
// internals hidden, full cluster objects.
func DefaultListOptions() ListOptions {
	return ListOptions{Sort: true, HideInternal: true, FetchObjects: true}
}

// ListTopics lists topics known to the cluster. Name filtering happens
// before any cluster object is fetched so that filtered-out topics cost no
// network round-trips.
func (c *TopicController) ListTopics(ctx context.Context, opts ListOptions) ([]*domain.Topic, error) {
	names, err := c.client.TopicNames(ctx, domain.ViewAdmin)
	if err != nil {
		return nil, err
	}

	if opts.Search != "" {
		re, err := regexp.Compile(opts.Search)
		if err != nil {
			return nil, fmt.Errorf("invalid search pattern %q: %w", opts.Search, err)
		}
		var kept []string
		for _, name := range names {
			if loc := re.FindStringIndex(name); loc != nil && loc[0] == 0 {
				kept = append(kept, name)
			}
		}
		names = kept
	}
	if opts.HideInternal {
		var kept []string
		for _, name := range names {
			if !strings.HasPrefix(name, internalTopicPrefix) {
				kept = append(kept, name)
			}
		}
		names = kept
	}
	if opts.Sort {
		sort.Strings(names)
	}

	topics := make([]*domain.Topic, 0, len(names))
	for _, name := range names {
		if opts.FetchObjects {
			topic, err := c.GetClusterTopic(ctx, name)
			if err != nil {
				return nil, err
			}
			topics = append(topics, topic)
		} else {
			topics = append(topics, c.GetLocalTopic(name))
		}
	}
	return topics, nil
}

// CreateTopics creates every given topic, filling unset partition counts and
// replication factors from the context defaults. The metadata caches are
// invalidated whether or not creation succeeds.
func (c *TopicController) CreateTopics(ctx context.Context, topics ...*domain.Topic) error {
	return c.withCacheInvalidation(func() error {
		for _, topic := range topics {
			if topic.Name == "" {
				return ErrInvalidTopicName
			}
			partitions := topic.DeclaredPartitions
			if partitions <= 0 {
				partitions = c.cfg.NumPartitions()
			}
			replicas := topic.DeclaredReplicationFactor
			if replicas <= 0 {
				replicas = c.cfg.ReplicationFactor()
			}
			if err := c.client.CreateTopic(ctx, topic.Name, partitions, replicas, topic.Config); err != nil {
				utils.Logger.Error("create topic failed", "topic", topic.Name, "err", err)
				return err
			}
			utils.Logger.Info("topic created", "topic", topic.Name, "partitions", partitions, "replicas", replicas)
		}
		return nil
	})
}

// AlterConfigs applies the config of every given topic to its cluster
// counterpart. The metadata caches are invalidated on every exit path.
func (c *TopicController) AlterConfigs(ctx context.Context, topics ...*domain.Topic) error {
	return c.withCacheInvalidation(func() error {
		for _, topic := range topics {
			if len(topic.Config) == 0 {
				return ErrInvalidTopicConfig
			}
			if err := c.client.AlterTopicConfigs(ctx, topic.Name, topic.Config); err != nil {
				utils.Logger.Error("alter topic configs failed", "topic", topic.Name, "err", err)
				return err
			}
			utils.Logger.Info("topic configs altered", "topic", topic.Name)
		}
		return nil
	})
}

// DeleteTopic deletes the given topic. The metadata caches are invalidated
// on every exit path.
func (c *TopicController) DeleteTopic(ctx context.Context, topic *domain.Topic) error {
	return c.withCacheInvalidation(func() error {
		if err := c.client.DeleteTopic(ctx, topic.Name); err != nil {
			utils.Logger.Error("delete topic failed", "topic", topic.Name, "err", err)
			return err
		}
		utils.Logger.Info("topic deleted", "topic", topic.Name)
		return nil
	})
}

// GetClusterTopic fetches an existing topic with full cluster state.
func (c *TopicController) GetClusterTopic(ctx context.Context, name string) (*domain.Topic, error) {
	return c.updateFromCluster(ctx, domain.NewLocalTopic(name))
}

// GetLocalTopic returns a bare local declaration that never touches the
// cluster.
func (c *TopicController) GetLocalTopic(name string) *domain.Topic {
	return domain.NewLocalTopic(name)
}

// updateFromCluster populates a topic with cluster-truth partition data and
// configuration from one fetch cycle. The admin metadata and the
// consumer-side watermarks come from independently cached connections;
// staleness up to either cache's refresh interval is accepted and not
// synchronized away.
func (c *TopicController) updateFromCluster(ctx context.Context, topic *domain.Topic) (*domain.Topic, error) {
	meta, err := c.client.TopicMetadata(ctx, domain.ViewAdmin, topic.Name)
	if err != nil {
		return nil, err
	}
	lowWatermarks, err := c.client.StartOffsets(ctx, topic.Name)
	if err != nil {
		return nil, err
	}
	highWatermarks, err := c.client.EndOffsets(ctx, topic.Name)
	if err != nil {
		return nil, err
	}

	partitions, err := c.partitionData(ctx, meta, lowWatermarks, highWatermarks)
	if err != nil {
		return nil, err
	}

	topicConfig, err := c.client.DescribeTopicConfig(ctx, topic.Name)
	if err != nil {
		return nil, err
	}

	topic.PartitionData = partitions
	topic.Config = topicConfig
	topic.IsOnlyLocal = false
	return topic, nil
}

// partitionData merges admin metadata with watermarks and reads the record
// at high-1 of every non-empty partition to derive its latest timestamp.
// The consumer opened for that read is discarded afterwards and commits
// nothing.
func (c *TopicController) partitionData(ctx context.Context, meta domain.TopicMetadata, lowWatermarks, highWatermarks map[int32]int64) ([]domain.Partition, error) {
	partitions := make([]domain.Partition, 0, len(meta.Partitions))
	for _, pm := range meta.Partitions {
		low := lowWatermarks[pm.ID]
		high := highWatermarks[pm.ID]

		var latest time.Time
		if high > low {
			msg, err := c.consumeAt(ctx, meta.Name, pm.ID, high-1)
			if err != nil {
				return nil, fmt.Errorf("read latest record of %s/%d: %w", meta.Name, pm.ID, err)
			}
			latest = msg.Timestamp
		}

		partitions = append(partitions, domain.Partition{
			ID:              pm.ID,
			Watermark:       domain.Watermark{Low: low, High: high},
			ISR:             pm.ISR,
			Leader:          pm.Leader,
			Replicas:        pm.Replicas,
			LatestTimestamp: latest,
		})
	}
	return partitions, nil
}

func (c *TopicController) consumeAt(ctx context.Context, topic string, partition int32, offset int64) (domain.Message, error) {
	consumer, err := c.client.NewPartitionConsumer(ctx, config.PingGroupID, topic, partition, offset)
	if err != nil {
		return domain.Message{}, err
	}
	defer consumer.Close()
	return consumer.ConsumeOne(ctx, consumeTimeout)
}

// GetOffsetsClosestToTimestamp scans every partition of a topic from its
// beginning and returns, per partition, the offset one past the last record
// whose timestamp is strictly before timestampLimit, or 0 when the
// partition is empty or holds no such record. A quiet partition (five
// consecutive empty polls) and a fully scanned partition are both normal
// stop conditions, never errors.
func (c *TopicController) GetOffsetsClosestToTimestamp(ctx context.Context, topicName string, timestampLimit time.Time) (map[int32]int64, error) {
	topic, err := c.GetClusterTopic(ctx, topicName)
	if err != nil {
		return nil, err
	}

	partitionOffsets := make(map[int32]int64, len(topic.PartitionData))
	for _, p := range topic.PartitionData {
		partitionOffsets[p.ID] = 0
	}

	// A fresh group id per scan keeps it clear of any existing consumer
	// group state.
	groupID := fmt.Sprintf("group_for_%s_%d", topicName, time.Now().UnixMilli())

	for _, partition := range topic.PartitionIDs() {
		consumer, err := c.client.NewPartitionConsumer(ctx, groupID, topicName, partition, domain.OffsetBeginning)
		if err != nil {
			return nil, err
		}
		if err := c.scanPartition(ctx, consumer, timestampLimit, partitionOffsets); err != nil {
			consumer.Close()
			return nil, err
		}
		consumer.Close()
	}
	return partitionOffsets, nil
}

func (c *TopicController) scanPartition(ctx context.Context, consumer domain.PartitionConsumer, timestampLimit time.Time, partitionOffsets map[int32]int64) error {
	retries := maxConsumeRetries
	for {
		msg, err := consumer.ConsumeOne(ctx, consumeTimeout)
		switch {
		case errors.Is(err, domain.ErrEmptyPoll):
			retries--
			if retries <= 0 {
				return nil
			}
		case errors.Is(err, domain.ErrEndOfPartition):
			return nil
		case err != nil:
			return err
		default:
			if msg.Timestamp.Before(timestampLimit) {
				partitionOffsets[msg.Partition] = msg.Offset + 1
			}
		}
	}
}

// DiffWithCluster compares a local declaration against its freshly fetched
// cluster counterpart. Fields are inspected in a fixed order: partition
// count, replication factor, then every config key reported by the cluster.
// A config key the local declaration leaves unset counts as a difference.
func (c *TopicController) DiffWithCluster(ctx context.Context, localTopic *domain.Topic) (*domain.TopicDiff, error) {
	if !localTopic.IsOnlyLocal {
		return nil, fmt.Errorf("%w: %s", domain.ErrTopicNotLocal, localTopic.Name)
	}

	clusterTopic, err := c.GetClusterTopic(ctx, localTopic.Name)
	if err != nil {
		return nil, err
	}

	diff := domain.NewTopicDiff()
	diff.Set("num_partitions", clusterTopic.NumPartitions(), declaredPartitions(localTopic))
	diff.Set("replication_factor", clusterTopic.ReplicationFactor(), declaredReplication(localTopic))

	keys := make([]string, 0, len(clusterTopic.Config))
	for key := range clusterTopic.Config {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var local any
		if value, ok := localTopic.Config[key]; ok {
			local = value
		}
		diff.Set(key, clusterTopic.Config[key], local)
	}
	return diff, nil
}

// declaredPartitions returns the declared partition count, or nil when the
// declaration leaves it unset.
func declaredPartitions(t *domain.Topic) any {
	if t.DeclaredPartitions <= 0 {
		return nil
	}
	return t.DeclaredPartitions
}

func declaredReplication(t *domain.Topic) any {
	if t.DeclaredReplicationFactor <= 0 {
		return nil
	}
	return t.DeclaredReplicationFactor
}

// withCacheInvalidation runs a mutating operation and invalidates the
// facade's metadata caches on every exit path, success or failure, so the
// very next read reflects the mutation.
func (c *TopicController) withCacheInvalidation(fn func() error) error {
	defer c.client.InvalidateMetadataCache()
	return fn()
}

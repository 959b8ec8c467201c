// Package kafka implements the cluster client facade on top of franz-go.
// One facade holds two independent connections to the same cluster: the
// admin view serves topic metadata, configs and mutations, the consumer view
// serves watermarks and per-partition consumers. The two views cache
// metadata independently and are never synchronized with each other.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Temikus/esque/internal/config"
	"github.com/Temikus/esque/internal/domain"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	metadataTimeout = 10 * time.Second
	createTimeout   = 60 * time.Second
	mutateTimeout   = 30 * time.Second
)

// Client implements domain.ClusterClient using franz-go.
type Client struct {
	adminConn    *kgo.Client
	consumerConn *kgo.Client
	adminView    *kadm.Client
	consumerView *kadm.Client
	cfg          config.ContextConfig
}

// NewClient opens the two connections to the cluster described by cfg.
func NewClient(cfg config.ContextConfig) (*Client, error) {
	opts, err := buildClientOpts(cfg)
	if err != nil {
		return nil, err
	}
	adminConn, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	consumerConn, err := kgo.NewClient(opts...)
	if err != nil {
		adminConn.Close()
		return nil, err
	}
	return &Client{
		adminConn:    adminConn,
		consumerConn: consumerConn,
		adminView:    kadm.NewClient(adminConn),
		consumerView: kadm.NewClient(consumerConn),
		cfg:          cfg,
	}, nil
}

// Adm returns the kadm client behind the selected view.
func (c *Client) Adm(view domain.View) (*kadm.Client, error) {
	switch view {
	case domain.ViewAdmin:
		return c.adminView, nil
	case domain.ViewConsumer:
		return c.consumerView, nil
	default:
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownView, view)
	}
}

// TopicNames lists all topic names known to the selected view, internal ones
// included.
func (c *Client) TopicNames(ctx context.Context, view domain.View) ([]string, error) {
	adm, err := c.Adm(view)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	details, err := adm.ListTopicsWithInternal(cctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(details))
	for name := range details {
		names = append(names, name)
	}
	return names, nil
}

// TopicMetadata fetches per-partition metadata for one topic through the
// selected view. Any cluster-reported error for the topic name is surfaced
// as ErrTopicNotFound.
func (c *Client) TopicMetadata(ctx context.Context, view domain.View, topic string) (domain.TopicMetadata, error) {
	adm, err := c.Adm(view)
	if err != nil {
		return domain.TopicMetadata{}, err
	}
	cctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	details, err := adm.ListTopicsWithInternal(cctx, topic)
	if err != nil {
		return domain.TopicMetadata{}, err
	}
	td, ok := details[topic]
	if !ok {
		return domain.TopicMetadata{}, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, topic)
	}
	if td.Err != nil {
		return domain.TopicMetadata{}, fmt.Errorf("%w: %s: %v", domain.ErrTopicNotFound, topic, td.Err)
	}

	partitions := make([]domain.PartitionMetadata, 0, len(td.Partitions))
	for _, p := range td.Partitions {
		partitions = append(partitions, domain.PartitionMetadata{
			ID:       p.Partition,
			Leader:   p.Leader,
			Replicas: p.Replicas,
			ISR:      p.ISR,
		})
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i].ID < partitions[j].ID })

	return domain.TopicMetadata{Name: topic, Partitions: partitions}, nil
}

// DescribeTopicConfig returns the live configuration of a topic.
func (c *Client) DescribeTopicConfig(ctx context.Context, topic string) (map[string]string, error) {
	cctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	resources, err := c.adminView.DescribeTopicConfigs(cctx, topic)
	if err != nil {
		return nil, err
	}
	configs := make(map[string]string)
	for _, res := range resources {
		for _, cfg := range res.Configs {
			if cfg.Value != nil {
				configs[cfg.Key] = *cfg.Value
			}
		}
	}
	return configs, nil
}

// CreateTopic submits a create request and waits for it to complete.
func (c *Client) CreateTopic(ctx context.Context, topic string, partitions int32, replicationFactor int16, topicConfig map[string]string) error {
	cctx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	resp, err := c.adminView.CreateTopics(cctx, partitions, replicationFactor, configPointers(topicConfig), topic)
	if err != nil {
		return adminErr("create", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil {
			return &domain.AdminOperationError{Op: "create", Topic: r.Topic, Err: r.Err}
		}
	}
	return nil
}

// AlterTopicConfigs submits a config alteration and waits for it to
// complete.
func (c *Client) AlterTopicConfigs(ctx context.Context, topic string, topicConfig map[string]string) error {
	cctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()

	alters := make([]kadm.AlterConfig, 0, len(topicConfig))
	for key, value := range topicConfig {
		value := value
		alters = append(alters, kadm.AlterConfig{Op: kadm.SetConfig, Name: key, Value: &value})
	}

	resp, err := c.adminView.AlterTopicConfigs(cctx, alters, topic)
	if err != nil {
		return adminErr("alter", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil {
			return &domain.AdminOperationError{Op: "alter", Topic: r.Name, Err: r.Err}
		}
	}
	return nil
}

// DeleteTopic submits a deletion and waits for it to complete.
func (c *Client) DeleteTopic(ctx context.Context, topic string) error {
	cctx, cancel := context.WithTimeout(ctx, mutateTimeout)
	defer cancel()

	resp, err := c.adminView.DeleteTopics(cctx, topic)
	if err != nil {
		return adminErr("delete", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil {
			return &domain.AdminOperationError{Op: "delete", Topic: r.Topic, Err: r.Err}
		}
	}
	return nil
}

// StartOffsets returns the low watermark of every partition through the
// consumer view.
func (c *Client) StartOffsets(ctx context.Context, topic string) (map[int32]int64, error) {
	cctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	listed, err := c.consumerView.ListStartOffsets(cctx, topic)
	if err != nil {
		return nil, err
	}
	return flattenOffsets(listed, topic)
}

// EndOffsets returns the high watermark of every partition through the
// consumer view.
func (c *Client) EndOffsets(ctx context.Context, topic string) (map[int32]int64, error) {
	cctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	listed, err := c.consumerView.ListEndOffsets(cctx, topic)
	if err != nil {
		return nil, err
	}
	return flattenOffsets(listed, topic)
}

// NewPartitionConsumer opens a dedicated connection consuming exactly one
// partition, positioned at the given offset or at the partition start. The
// end offset is captured once at open; the consumer only reads forward.
func (c *Client) NewPartitionConsumer(ctx context.Context, groupID, topic string, partition int32, at int64) (domain.PartitionConsumer, error) {
	startOffsets, err := c.StartOffsets(ctx, topic)
	if err != nil {
		return nil, err
	}
	endOffsets, err := c.EndOffsets(ctx, topic)
	if err != nil {
		return nil, err
	}

	var offset kgo.Offset
	next := at
	if at == domain.OffsetBeginning {
		offset = kgo.NewOffset().AtStart()
		next = startOffsets[partition]
	} else {
		offset = kgo.NewOffset().At(at)
	}

	opts, err := buildClientOpts(c.cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		kgo.ClientID(groupID),
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{topic: {partition: offset}}),
	)
	conn, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return &PartitionConsumer{
		conn:      conn,
		topic:     topic,
		partition: partition,
		next:      next,
		end:       endOffsets[partition],
	}, nil
}

// InvalidateMetadataCache forces a metadata refresh on both connections.
func (c *Client) InvalidateMetadataCache() {
	c.adminConn.ForceMetadataRefresh()
	c.consumerConn.ForceMetadataRefresh()
}

// Brokers lists the brokers of the cluster, sorted by id.
func (c *Client) Brokers(ctx context.Context) ([]domain.Broker, error) {
	cctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	meta, err := c.adminView.BrokerMetadata(cctx)
	if err != nil {
		return nil, err
	}
	brokers := make([]domain.Broker, 0, len(meta.Brokers))
	for _, b := range meta.Brokers {
		brokers = append(brokers, domain.Broker{ID: b.NodeID, Host: b.Host, Port: b.Port})
	}
	sort.Slice(brokers, func(i, j int) bool { return brokers[i].ID < brokers[j].ID })
	return brokers, nil
}

// Close releases both connections.
func (c *Client) Close() {
	c.adminConn.Close()
	c.consumerConn.Close()
}

func adminErr(op, topic string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s topic %q: %w", op, topic, domain.ErrCompletionTimeout)
	}
	return &domain.AdminOperationError{Op: op, Topic: topic, Err: err}
}

func configPointers(topicConfig map[string]string) map[string]*string {
	out := make(map[string]*string, len(topicConfig))
	for key, value := range topicConfig {
		value := value
		out[key] = &value
	}
	return out
}

func flattenOffsets(listed kadm.ListedOffsets, topic string) (map[int32]int64, error) {
	out := make(map[int32]int64)
	for partition, lo := range listed[topic] {
		if lo.Err != nil {
			return nil, fmt.Errorf("list offsets for %s/%d: %w", topic, partition, lo.Err)
		}
		out[partition] = lo.Offset
	}
	return out, nil
}

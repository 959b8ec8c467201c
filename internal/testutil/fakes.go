// Package testutil provides in-memory test doubles for the cluster client
// facade and its partition consumers.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Temikus/esque/internal/config"
	"github.com/Temikus/esque/internal/domain"
)

// ConsumeEvent scripts one ConsumeOne result of a fake partition consumer.
type ConsumeEvent struct {
	Msg domain.Message
	Err error
}

// FakeTopic is the in-memory state of one topic on a FakeClusterClient.
type FakeTopic struct {
	Partitions int32
	Replicas   int16
	Config     map[string]string
	Leader     int32
	ISR        []int32

	// Records holds the log of each partition, in offset order starting
	// at StartOffset.
	Records     map[int32][]domain.Message
	StartOffset map[int32]int64
}

// FakeClusterClient is a test double implementing domain.ClusterClient with
// in-memory topic state. Mutations are applied to the in-memory state so
// that reads after a mutation observe it, mirroring a cluster whose caches
// were refreshed.
type FakeClusterClient struct {
	Topics map[string]*FakeTopic

	// PollScripts overrides consumer behaviour per topic/partition; each
	// opened consumer pops events from the front of its script. Without
	// a script, consumers serve Records then ErrEndOfPartition.
	PollScripts map[string]map[int32][]ConsumeEvent

	// InvalidateCalls counts InvalidateMetadataCache invocations.
	InvalidateCalls int

	// MetadataCalls counts TopicMetadata invocations, one per cluster
	// object fetch.
	MetadataCalls int

	// OpenedGroups records the group id of every opened consumer.
	OpenedGroups []string

	CreateErr error
	AlterErr  error
	DeleteErr error

	BrokerList []domain.Broker
}

// NewFakeClusterClient creates an empty fake cluster.
func NewFakeClusterClient() *FakeClusterClient {
	return &FakeClusterClient{
		Topics:      map[string]*FakeTopic{},
		PollScripts: map[string]map[int32][]ConsumeEvent{},
	}
}

// AddTopic registers a topic with the given shape and empty partitions.
func (f *FakeClusterClient) AddTopic(name string, partitions int32, replicas int16, topicConfig map[string]string) *FakeTopic {
	if topicConfig == nil {
		topicConfig = map[string]string{}
	}
	t := &FakeTopic{
		Partitions:  partitions,
		Replicas:    replicas,
		Config:      topicConfig,
		ISR:         []int32{0},
		Records:     map[int32][]domain.Message{},
		StartOffset: map[int32]int64{},
	}
	f.Topics[name] = t
	return t
}

// Produce appends a record with the given timestamp to a partition and
// returns its offset.
func (f *FakeClusterClient) Produce(topic string, partition int32, ts time.Time) int64 {
	t := f.Topics[topic]
	offset := t.StartOffset[partition] + int64(len(t.Records[partition]))
	t.Records[partition] = append(t.Records[partition], domain.Message{
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
		Timestamp: ts,
	})
	return offset
}

func (f *FakeClusterClient) TopicNames(_ context.Context, _ domain.View) ([]string, error) {
	names := make([]string, 0, len(f.Topics))
	for name := range f.Topics {
		names = append(names, name)
	}
	return names, nil
}

func (f *FakeClusterClient) TopicMetadata(_ context.Context, _ domain.View, topic string) (domain.TopicMetadata, error) {
	f.MetadataCalls++
	t, ok := f.Topics[topic]
	if !ok {
		return domain.TopicMetadata{}, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, topic)
	}
	partitions := make([]domain.PartitionMetadata, 0, t.Partitions)
	for id := int32(0); id < t.Partitions; id++ {
		replicas := make([]int32, t.Replicas)
		for i := range replicas {
			replicas[i] = int32(i)
		}
		partitions = append(partitions, domain.PartitionMetadata{
			ID:       id,
			Leader:   t.Leader,
			Replicas: replicas,
			ISR:      t.ISR,
		})
	}
	return domain.TopicMetadata{Name: topic, Partitions: partitions}, nil
}

func (f *FakeClusterClient) DescribeTopicConfig(_ context.Context, topic string) (map[string]string, error) {
	t, ok := f.Topics[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, topic)
	}
	out := make(map[string]string, len(t.Config))
	for k, v := range t.Config {
		out[k] = v
	}
	return out, nil
}

func (f *FakeClusterClient) CreateTopic(_ context.Context, topic string, partitions int32, replicationFactor int16, topicConfig map[string]string) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.AddTopic(topic, partitions, replicationFactor, topicConfig)
	return nil
}

func (f *FakeClusterClient) AlterTopicConfigs(_ context.Context, topic string, topicConfig map[string]string) error {
	if f.AlterErr != nil {
		return f.AlterErr
	}
	t, ok := f.Topics[topic]
	if !ok {
		return &domain.AdminOperationError{Op: "alter", Topic: topic, Err: domain.ErrTopicNotFound}
	}
	for k, v := range topicConfig {
		t.Config[k] = v
	}
	return nil
}

func (f *FakeClusterClient) DeleteTopic(_ context.Context, topic string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.Topics[topic]; !ok {
		return &domain.AdminOperationError{Op: "delete", Topic: topic, Err: domain.ErrTopicNotFound}
	}
	delete(f.Topics, topic)
	return nil
}

func (f *FakeClusterClient) StartOffsets(_ context.Context, topic string) (map[int32]int64, error) {
	t, ok := f.Topics[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, topic)
	}
	out := make(map[int32]int64, t.Partitions)
	for id := int32(0); id < t.Partitions; id++ {
		out[id] = t.StartOffset[id]
	}
	return out, nil
}

func (f *FakeClusterClient) EndOffsets(_ context.Context, topic string) (map[int32]int64, error) {
	t, ok := f.Topics[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, topic)
	}
	out := make(map[int32]int64, t.Partitions)
	for id := int32(0); id < t.Partitions; id++ {
		out[id] = t.StartOffset[id] + int64(len(t.Records[id]))
	}
	return out, nil
}

func (f *FakeClusterClient) NewPartitionConsumer(_ context.Context, groupID, topic string, partition int32, at int64) (domain.PartitionConsumer, error) {
	t, ok := f.Topics[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, topic)
	}
	f.OpenedGroups = append(f.OpenedGroups, groupID)

	if scripts, ok := f.PollScripts[topic]; ok {
		if script, ok := scripts[partition]; ok {
			return &FakePartitionConsumer{Events: script}, nil
		}
	}

	start := t.StartOffset[partition]
	if at == domain.OffsetBeginning {
		at = start
	}
	var events []ConsumeEvent
	for _, msg := range t.Records[partition] {
		if msg.Offset >= at {
			events = append(events, ConsumeEvent{Msg: msg})
		}
	}
	return &FakePartitionConsumer{Events: events, EndlessEOF: true}, nil
}

func (f *FakeClusterClient) InvalidateMetadataCache() {
	f.InvalidateCalls++
}

func (f *FakeClusterClient) Brokers(_ context.Context) ([]domain.Broker, error) {
	out := append([]domain.Broker(nil), f.BrokerList...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeClusterClient) Close() {}

// FakePartitionConsumer serves a scripted sequence of consume results.
type FakePartitionConsumer struct {
	Events []ConsumeEvent
	// EndlessEOF makes the consumer return ErrEndOfPartition forever once
	// the script is exhausted, instead of ErrEmptyPoll.
	EndlessEOF bool
	Closed     bool
}

func (f *FakePartitionConsumer) ConsumeOne(_ context.Context, _ time.Duration) (domain.Message, error) {
	if len(f.Events) == 0 {
		if f.EndlessEOF {
			return domain.Message{}, domain.ErrEndOfPartition
		}
		return domain.Message{}, domain.ErrEmptyPoll
	}
	ev := f.Events[0]
	f.Events = f.Events[1:]
	return ev.Msg, ev.Err
}

func (f *FakePartitionConsumer) Close() {
	f.Closed = true
}

// FakeFactory returns a preconfigured client for any context config.
type FakeFactory struct {
	Client domain.ClusterClient
	Err    error
}

func (f *FakeFactory) CreateClient(_ config.ContextConfig) (domain.ClusterClient, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Client != nil {
		return f.Client, nil
	}
	return NewFakeClusterClient(), nil
}

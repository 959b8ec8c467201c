package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTopic_LocalDeclaration(t *testing.T) {
	t.Parallel()
	topic := NewLocalTopic("orders")
	topic.DeclaredPartitions = 3
	topic.DeclaredReplicationFactor = 2

	require.True(t, topic.IsOnlyLocal)
	require.Equal(t, int32(3), topic.NumPartitions())
	require.Equal(t, int16(2), topic.ReplicationFactor())
	require.Empty(t, topic.Partitions())
}

func TestTopic_ClusterValuesWin(t *testing.T) {
	t.Parallel()
	topic := NewLocalTopic("orders")
	topic.DeclaredPartitions = 1
	topic.DeclaredReplicationFactor = 1
	topic.PartitionData = []Partition{
		{ID: 0, Watermark: Watermark{Low: 0, High: 5}, Replicas: []int32{0, 1, 2}},
		{ID: 1, Watermark: Watermark{Low: 2, High: 2}, Replicas: []int32{0, 1, 2}},
	}
	topic.IsOnlyLocal = false

	require.Equal(t, int32(2), topic.NumPartitions())
	require.Equal(t, int16(3), topic.ReplicationFactor())
	require.Equal(t, []int32{0, 1}, topic.PartitionIDs())

	offsets := topic.Offsets()
	require.Equal(t, Watermark{Low: 0, High: 5}, offsets[0])
	require.Equal(t, Watermark{Low: 2, High: 2}, offsets[1])
}

func TestPartition_IsEmpty(t *testing.T) {
	t.Parallel()
	require.True(t, Partition{Watermark: Watermark{Low: 4, High: 4}}.IsEmpty())
	require.False(t, Partition{Watermark: Watermark{Low: 4, High: 5}}.IsEmpty())
}

func TestTopic_YAMLRoundTrip(t *testing.T) {
	t.Parallel()
	topic := NewLocalTopic("orders")
	topic.DeclaredPartitions = 5
	topic.DeclaredReplicationFactor = 3
	topic.Config = map[string]string{"cleanup.policy": "compact"}

	data, err := topic.ToYAML(false)
	require.NoError(t, err)

	parsed, err := TopicFromYAML(data)
	require.NoError(t, err)
	require.Equal(t, "orders", parsed.Name)
	require.Equal(t, int32(5), parsed.NumPartitions())
	require.Equal(t, int16(3), parsed.ReplicationFactor())
	require.Equal(t, "compact", parsed.Config["cleanup.policy"])
	require.True(t, parsed.IsOnlyLocal)
}

func TestTopic_YAMLOnlyEditable(t *testing.T) {
	t.Parallel()
	topic := NewLocalTopic("orders")
	topic.DeclaredPartitions = 5
	topic.Config = map[string]string{"retention.ms": "60000"}

	data, err := topic.ToYAML(true)
	require.NoError(t, err)
	require.NotContains(t, data, "num_partitions")
	require.Contains(t, data, "retention.ms")
}

func TestTopicFromYAML_RequiresName(t *testing.T) {
	t.Parallel()
	_, err := TopicFromYAML("config:\n  cleanup.policy: compact\n")
	require.Error(t, err)
}

func TestPartition_LatestTimestampAbsentWhenEmpty(t *testing.T) {
	t.Parallel()
	p := Partition{ID: 0, Watermark: Watermark{Low: 3, High: 3}}
	require.True(t, p.LatestTimestamp.IsZero())

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p = Partition{ID: 0, Watermark: Watermark{Low: 0, High: 1}, LatestTimestamp: ts}
	require.Equal(t, ts, p.LatestTimestamp)
}

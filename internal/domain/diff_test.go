package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopicDiff_EqualValuesSkipped(t *testing.T) {
	t.Parallel()
	diff := NewTopicDiff()
	diff.Set("num_partitions", int32(3), int32(3))
	diff.Set("cleanup.policy", "delete", "delete")

	require.False(t, diff.HasChanges())
	require.Zero(t, diff.Len())
}

func TestTopicDiff_RecordsDifference(t *testing.T) {
	t.Parallel()
	diff := NewTopicDiff()
	diff.Set("cleanup.policy", "delete", "compact")

	require.True(t, diff.HasChanges())
	ad, ok := diff.Get("cleanup.policy")
	require.True(t, ok)
	require.Equal(t, "delete", ad.Cluster)
	require.Equal(t, "compact", ad.Local)
}

func TestTopicDiff_UnsetLocalIsADifference(t *testing.T) {
	t.Parallel()
	diff := NewTopicDiff()
	diff.Set("retention.ms", "604800000", nil)

	ad, ok := diff.Get("retention.ms")
	require.True(t, ok)
	require.Equal(t, "604800000", ad.Cluster)
	require.Nil(t, ad.Local)
}

func TestTopicDiff_NormalizesLocalToString(t *testing.T) {
	t.Parallel()
	diff := NewTopicDiff()
	// local declarations may use ints for numeric config values
	diff.Set("retention.ms", "60000", 60000)
	require.False(t, diff.HasChanges())

	diff.Set("retention.ms", "60000", 50000)
	ad, _ := diff.Get("retention.ms")
	require.Equal(t, "50000", ad.Local)
}

func TestTopicDiff_ChangesKeepInsertionOrder(t *testing.T) {
	t.Parallel()
	diff := NewTopicDiff()
	diff.Set("num_partitions", int32(3), int32(1)).
		Set("replication_factor", int16(3), int16(1)).
		Set("cleanup.policy", "delete", "compact")

	changes := diff.Changes()
	require.Len(t, changes, 3)
	require.Equal(t, "num_partitions", changes[0].Name)
	require.Equal(t, "replication_factor", changes[1].Name)
	require.Equal(t, "cleanup.policy", changes[2].Name)
}

func TestTopicDiff_IsValid(t *testing.T) {
	t.Parallel()
	diff := NewTopicDiff()
	diff.Set("cleanup.policy", "delete", "compact")
	require.True(t, diff.IsValid())

	diff.Set("num_partitions", int32(3), int32(6))
	require.False(t, diff.IsValid())
}

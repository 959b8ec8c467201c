package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Temikus/esque/internal/config"
	"github.com/Temikus/esque/internal/domain"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
)

func TestAdmSelectsView(t *testing.T) {
	t.Parallel()
	admin := &kadm.Client{}
	consumer := &kadm.Client{}
	c := &Client{adminView: admin, consumerView: consumer}

	got, err := c.Adm(domain.ViewAdmin)
	require.NoError(t, err)
	require.Same(t, admin, got)

	got, err = c.Adm(domain.ViewConsumer)
	require.NoError(t, err)
	require.Same(t, consumer, got)

	_, err = c.Adm(domain.View(42))
	require.ErrorIs(t, err, domain.ErrUnknownView)
}

func TestAdminErrMapsDeadlineToCompletionTimeout(t *testing.T) {
	t.Parallel()
	err := adminErr("create", "orders", fmt.Errorf("request: %w", context.DeadlineExceeded))
	require.ErrorIs(t, err, domain.ErrCompletionTimeout)

	cause := errors.New("broker unreachable")
	err = adminErr("delete", "orders", cause)
	var opErr *domain.AdminOperationError
	require.ErrorAs(t, err, &opErr)
	require.Equal(t, "delete", opErr.Op)
	require.Equal(t, "orders", opErr.Topic)
	require.ErrorIs(t, err, cause)
}

func TestConfigPointers(t *testing.T) {
	t.Parallel()
	in := map[string]string{"cleanup.policy": "compact", "retention.ms": "60000"}
	out := configPointers(in)

	require.Len(t, out, 2)
	require.Equal(t, "compact", *out["cleanup.policy"])
	require.Equal(t, "60000", *out["retention.ms"])
	require.NotSame(t, out["cleanup.policy"], out["retention.ms"])
}

func TestFlattenOffsets(t *testing.T) {
	t.Parallel()
	listed := kadm.ListedOffsets{
		"orders": {
			0: kadm.ListedOffset{Topic: "orders", Partition: 0, Offset: 5},
			1: kadm.ListedOffset{Topic: "orders", Partition: 1, Offset: 12},
		},
	}

	out, err := flattenOffsets(listed, "orders")
	require.NoError(t, err)
	require.Equal(t, map[int32]int64{0: 5, 1: 12}, out)
}

func TestFlattenOffsetsSurfacesPartitionError(t *testing.T) {
	t.Parallel()
	cause := errors.New("not leader for partition")
	listed := kadm.ListedOffsets{
		"orders": {
			0: kadm.ListedOffset{Topic: "orders", Partition: 0, Err: cause},
		},
	}

	_, err := flattenOffsets(listed, "orders")
	require.ErrorIs(t, err, cause)
}

func TestFlattenOffsetsUnknownTopic(t *testing.T) {
	t.Parallel()
	out, err := flattenOffsets(kadm.ListedOffsets{}, "missing")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestBuildClientOptsBasic(t *testing.T) {
	t.Parallel()
	opts, err := buildClientOpts(config.ContextConfig{
		Name:     "local",
		Brokers:  []string{"localhost:9092"},
		ClientID: "esque",
	})
	require.NoError(t, err)
	require.Len(t, opts, 2) // client id + seed brokers
}

func TestBuildSASLMechanism(t *testing.T) {
	for _, tc := range []struct {
		mechanism string
		name      string
	}{
		{"PLAIN", "PLAIN"},
		{"SCRAM-SHA-256", "SCRAM-SHA-256"},
		{"SCRAM-SHA-512", "SCRAM-SHA-512"},
	} {
		mech, err := buildSASLMechanism(&config.SASLConfig{Mechanism: tc.mechanism, Username: "u", Password: "p"})
		require.NoError(t, err)
		require.NotNil(t, mech)
		require.Equal(t, tc.name, mech.Name())
	}

	mech, err := buildSASLMechanism(&config.SASLConfig{Mechanism: "GSSAPI"})
	require.NoError(t, err)
	require.Nil(t, mech)
}

func TestBuildSASLMechanismEnvOverrides(t *testing.T) {
	t.Setenv("ESQUE_TEST_USER", "from-env")
	t.Setenv("ESQUE_TEST_PASS", "secret")

	mech, err := buildSASLMechanism(&config.SASLConfig{
		Mechanism:   "PLAIN",
		Username:    "inline",
		UsernameEnv: "ESQUE_TEST_USER",
		PasswordEnv: "ESQUE_TEST_PASS",
	})
	require.NoError(t, err)
	require.NotNil(t, mech)
}

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteConfigRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "esque.yml")

	cfg := FileConfig{
		CurrentContext: "local",
		Contexts: []ContextConfig{
			{
				Name:                     "local",
				Brokers:                  []string{"localhost:9092"},
				ClientID:                 "esque",
				DefaultNumPartitions:     3,
				DefaultReplicationFactor: 2,
			},
			{
				Name:    "prod",
				Brokers: []string{"b1:9092", "b2:9092"},
				SASL:    &SASLConfig{Mechanism: "SCRAM-SHA-512", UsernameEnv: "KAFKA_USER", PasswordEnv: "KAFKA_PASS"},
				TLS:     &TLSConfig{Enabled: true},
			},
		},
	}
	require.NoError(t, WriteConfig(path, cfg))

	read, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, read)
}

func TestReadConfigMissingFile(t *testing.T) {
	t.Parallel()
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestContextLookup(t *testing.T) {
	t.Parallel()
	cfg := FileConfig{Contexts: []ContextConfig{{Name: "local"}}}

	_, ok := cfg.Context("local")
	require.True(t, ok)
	_, ok = cfg.Context("unknown")
	require.False(t, ok)
}

func TestContextDefaults(t *testing.T) {
	t.Parallel()
	c := ContextConfig{}
	require.Equal(t, DefaultNumPartitions, c.NumPartitions())
	require.Equal(t, DefaultReplicationFactor, c.ReplicationFactor())

	c = ContextConfig{DefaultNumPartitions: 12, DefaultReplicationFactor: 3}
	require.Equal(t, int32(12), c.NumPartitions())
	require.Equal(t, int16(3), c.ReplicationFactor())
}

func TestPingGroupIDIsNamespaced(t *testing.T) {
	t.Parallel()
	require.Regexp(t, `^esque-ping-[a-z]{8}$`, PingGroupID)
}

// Package config holds the esque context configuration: named cluster
// contexts with connectivity, security and topic defaults, stored as a
// single YAML file.
package config

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultNumPartitions is used when a context sets no default.
	DefaultNumPartitions int32 = 1
	// DefaultReplicationFactor is used when a context sets no default.
	DefaultReplicationFactor int16 = 1
)

// PingGroupID is the consumer group id used for internal single-record
// reads. Randomized per process so those reads never collide with real
// consumer group state.
var PingGroupID = fmt.Sprintf("esque-ping-%s", randomSuffix(8))

func randomSuffix(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// ContextConfig holds connectivity, security and operation defaults for one
// cluster context.
type ContextConfig struct {
	Name     string      `yaml:"name" json:"name"`
	Brokers  []string    `yaml:"brokers" json:"brokers"`
	ClientID string      `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	TLS      *TLSConfig  `yaml:"tls,omitempty" json:"tls,omitempty"`
	SASL     *SASLConfig `yaml:"sasl,omitempty" json:"sasl,omitempty"`
	AWS      *AWSConfig  `yaml:"aws,omitempty" json:"aws,omitempty"`

	// Defaults applied when a topic declaration leaves the values unset.
	DefaultNumPartitions     int32 `yaml:"default_num_partitions,omitempty" json:"default_num_partitions,omitempty"`
	DefaultReplicationFactor int16 `yaml:"default_replication_factor,omitempty" json:"default_replication_factor,omitempty"`
}

// NumPartitions returns the context's default partition count.
func (c ContextConfig) NumPartitions() int32 {
	if c.DefaultNumPartitions > 0 {
		return c.DefaultNumPartitions
	}
	return DefaultNumPartitions
}

// ReplicationFactor returns the context's default replication factor.
func (c ContextConfig) ReplicationFactor() int16 {
	if c.DefaultReplicationFactor > 0 {
		return c.DefaultReplicationFactor
	}
	return DefaultReplicationFactor
}

// TLSConfig holds TLS related fields.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	CAFile             string `yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
	CertFile           string `yaml:"cert_file,omitempty" json:"cert_file,omitempty"`
	KeyFile            string `yaml:"key_file,omitempty" json:"key_file,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty" json:"insecure_skip_verify,omitempty"`
}

// SASLConfig holds SASL configuration. Credentials may be provided inline or
// via env var names.
type SASLConfig struct {
	Mechanism   string `yaml:"mechanism,omitempty" json:"mechanism,omitempty"` // e.g. PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty"`
	UsernameEnv string `yaml:"username_env,omitempty" json:"username_env,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty" json:"password_env,omitempty"`
}

// AWSConfig holds AWS IAM SASL config.
type AWSConfig struct {
	IAM             bool   `yaml:"iam,omitempty" json:"iam,omitempty"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	AccessKeyEnv    string `yaml:"access_key_env,omitempty" json:"access_key_env,omitempty"`
	SecretKeyEnv    string `yaml:"secret_key_env,omitempty" json:"secret_key_env,omitempty"`
	SessionTokenEnv string `yaml:"session_token_env,omitempty" json:"session_token_env,omitempty"`
}

// FileConfig is the on-disk esque configuration: all known contexts plus the
// name of the currently selected one.
type FileConfig struct {
	CurrentContext string          `yaml:"current_context,omitempty" json:"current_context,omitempty"`
	Contexts       []ContextConfig `yaml:"contexts" json:"contexts"`
}

// Context looks up a context by name.
func (f FileConfig) Context(name string) (ContextConfig, bool) {
	for _, c := range f.Contexts {
		if c.Name == name {
			return c, true
		}
	}
	return ContextConfig{}, false
}

// ReadConfig loads the configuration from path.
func ReadConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// WriteConfig persists the configuration to path.
func WriteConfig(path string, cfg FileConfig) error {
	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

package application

import "errors"

var (
	// ErrInvalidTopicName is returned when a topic declaration has no name
	ErrInvalidTopicName = errors.New("invalid topic name")

	// ErrInvalidTopicConfig is returned when a config alteration carries no keys
	ErrInvalidTopicConfig = errors.New("invalid topic configuration")
)

package kafka

import (
	"github.com/Temikus/esque/internal/config"
	"github.com/Temikus/esque/internal/domain"
)

// Factory creates cluster clients from context configuration.
type Factory struct{}

// NewFactory creates a new client factory.
func NewFactory() *Factory {
	return &Factory{}
}

// CreateClient opens a new cluster client for the given context.
func (f *Factory) CreateClient(cfg config.ContextConfig) (domain.ClusterClient, error) {
	return NewClient(cfg)
}

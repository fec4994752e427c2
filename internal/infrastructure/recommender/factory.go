package recommender

import (
	"github.com/repoflow/backend/internal/domain/recipe"
	"github.com/repoflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Provider names accepted in configuration
const (
	ProviderMock   = "mock"
	ProviderRandom = "random"
	ProviderNone   = "none"
)

// New builds the configured recommendation provider. It returns nil for
// ProviderNone; unknown names fall back to the random stub.
func New(cfg *config.RecommenderConfig, logger *zap.Logger) recipe.Recommender {
	if logger == nil {
		logger = zap.NewNop()
	}

	var provider recipe.Recommender
	switch cfg.Provider {
	case ProviderNone:
		logger.Info("recommendation provider disabled")
		return nil
	case ProviderMock, ProviderRandom, "":
		provider = NewRandom()
	default:
		logger.Warn("unknown recommendation provider, using mock",
			zap.String("provider", cfg.Provider),
		)
		provider = NewRandom()
	}

	if cfg.BreakerEnabled {
		provider = NewCircuitBreaker(provider, BreakerSettings{
			Name:        "recommender",
			MaxFailures: cfg.BreakerMaxFailures,
			Timeout:     cfg.BreakerTimeout,
		}, logger)
	}

	return provider
}

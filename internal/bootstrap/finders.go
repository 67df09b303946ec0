package bootstrap

import (
	"go.uber.org/zap"

	"locator-healing/internal/ai"
	"locator-healing/internal/config"
	"locator-healing/internal/ports"
)

// The advanced strategies are only wired when an API key is configured; a nil
// finder makes the healer skip that step.

func newSemanticFinder(conf *config.Config, client *ai.Client, logger *zap.Logger) ports.SemanticFinder {
	if !conf.AIConfig.Enabled() {
		logger.Info("Semantic finder disabled: no AI_API_KEY")

		return nil
	}

	return ai.NewSemanticFinder(client, logger)
}

func newVisualFinder(conf *config.Config, client *ai.Client, logger *zap.Logger) ports.VisualFinder {
	if !conf.AIConfig.Enabled() {
		logger.Info("Visual finder disabled: no AI_API_KEY")

		return nil
	}

	return ai.NewVisualFinder(client, logger)
}

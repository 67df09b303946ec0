package usecase

import (
	"locator-healing/internal/config"
	"locator-healing/internal/metrics"
	"locator-healing/internal/ports"
	"locator-healing/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Healer  adapters.HealerService
	Browser adapters.BrowserService
	History adapters.HistoryService
}

type Params struct {
	fx.In

	Logger    *zap.Logger
	Config    *config.Config
	Browser   ports.BrowserManager
	History   ports.HealingHistory
	Generator ports.AlternativeGenerator
	Semantic  ports.SemanticFinder `optional:"true"`
	Visual    ports.VisualFinder   `optional:"true"`
	Reporter  ports.Reporter       `optional:"true"`
	Metrics   *metrics.Healing     `optional:"true"`
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Healer:  factory.CreateHealerService(),
		Browser: factory.CreateBrowserService(),
		History: factory.CreateHistoryService(),
	}
}

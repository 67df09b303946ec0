package bootstrap

import (
	"time"

	"go.uber.org/fx"

	"locator-healing/internal/ai"
	"locator-healing/internal/browser"
	"locator-healing/internal/config"
	"locator-healing/internal/console"
	"locator-healing/internal/history"
	"locator-healing/internal/locator"
	"locator-healing/internal/ports"
	"locator-healing/internal/report"
	"locator-healing/internal/usecase"
)

// Module is the full dependency graph without the console runner.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			newMetrics,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager))),
			fx.Annotate(history.NewCache, fx.As(new(ports.HealingHistory))),
			fx.Annotate(func() locator.Generator { return locator.Generator{} }, fx.As(new(ports.AlternativeGenerator))),
			fx.Annotate(report.NewLogger, fx.As(new(ports.Reporter))),

			ai.NewClient,
			newSemanticFinder,
			newVisualFinder,

			usecase.NewUsecase,

			console.NewInterface,
		),
	)
}

func NewApp() *fx.App {
	return fx.New(
		Module(),

		fx.Invoke(
			serveMetrics,
			runConsole,
		),

		fx.StartTimeout(60*time.Second),
	)
}

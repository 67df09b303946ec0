package usecase

import (
	"locator-healing/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateHealerService() adapters.HealerService {
	return NewHealer(HealerParams{
		Config:    f.deps.Config,
		Logger:    f.deps.Logger,
		History:   f.deps.History,
		Generator: f.deps.Generator,
		Semantic:  f.deps.Semantic,
		Visual:    f.deps.Visual,
		Reporter:  f.deps.Reporter,
		Metrics:   f.deps.Metrics,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}

func (f *serviceFactory) CreateHistoryService() adapters.HistoryService {
	return f.deps.History
}

package adapters

import (
	"context"

	"locator-healing/internal/entity"
	"locator-healing/internal/ports"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Session(ctx context.Context) (ports.Session, error)
	IsReady() bool
}

type HealerService interface {
	Heal(ctx context.Context, session ports.Session, original entity.Locator, description string) entity.Resolution
	Find(ctx context.Context, session ports.Session, original entity.Locator, description string) (entity.ElementHandle, error)
}

type HistoryService interface {
	Remember(original, successful entity.Locator)
	Lookup(original entity.Locator) []entity.Locator
}

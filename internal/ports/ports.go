package ports

import (
	"context"

	"locator-healing/internal/entity"
)

// Page resolves locators against a live page. A miss is reported as an
// apperr not_found error.
type Page interface {
	FindElement(ctx context.Context, locator entity.Locator) (entity.ElementHandle, error)
}

// Session is a page plus the views the semantic and visual finders need.
type Session interface {
	Page
	Snapshot(ctx context.Context) ([]entity.Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	ElementAt(ctx context.Context, x, y float64) (entity.ElementHandle, error)
}

type BrowserManager interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Session(ctx context.Context) (Session, error)
	IsReady() bool
}

type SemanticFinder interface {
	FindElement(ctx context.Context, session Session, description string) (entity.ElementHandle, error)
}

// VisualFinder may be called with an empty description.
type VisualFinder interface {
	FindElement(ctx context.Context, session Session, description string) (entity.ElementHandle, error)
}

type AlternativeGenerator interface {
	Generate(original entity.Locator, description string) []entity.Locator
}

type HealingHistory interface {
	Remember(original, successful entity.Locator)
	Lookup(original entity.Locator) []entity.Locator
}

// Reporter receives heal events. Implementations must not block.
type Reporter interface {
	Info(message string)
	Warning(message string)
	Success(message string)
}

// Package logg holds the structured log field keys shared by all layers.
package logg

const (
	Layer       = "layer"
	Operation   = "operation"
	HealID      = "heal_id"
	TraceID     = "trace_id"
	Locator     = "locator"
	Original    = "original"
	Strategy    = "strategy"
	Description = "description"
	URL         = "url"
	Command     = "command"
)

package entity

// Strategy names the step of the healing chain that produced a resolution.
type Strategy string

const (
	StrategyHistory     Strategy = "history"
	StrategyAlternative Strategy = "alternative"
	StrategySemantic    Strategy = "semantic"
	StrategyVisual      Strategy = "visual"
)

// Resolution is the outcome of a heal. The zero value is the exhausted outcome.
type Resolution struct {
	Element  ElementHandle
	Strategy Strategy
	// Locator is the substitute that resolved; zero for semantic and visual hits.
	Locator Locator
}

func Resolved(element ElementHandle, strategy Strategy, locator Locator) Resolution {
	return Resolution{
		Element:  element,
		Strategy: strategy,
		Locator:  locator,
	}
}

func Exhausted() Resolution {
	return Resolution{}
}

func (r Resolution) IsResolved() bool {
	return r.Element != nil
}

func (r Resolution) IsExhausted() bool {
	return r.Element == nil
}

// Package locator derives substitute locators from a broken one.
package locator

import (
	"strings"

	"locator-healing/internal/entity"
)

const testIDAttribute = "data-test-id"

// Generator is the default ports.AlternativeGenerator.
type Generator struct{}

func (Generator) Generate(original entity.Locator, description string) []entity.Locator {
	return Generate(original, description)
}

// Generate returns candidate locators for original, most structurally similar
// first. Description-derived candidates always come last. It never panics and
// returns nil when there is nothing to try.
func Generate(original entity.Locator, description string) []entity.Locator {
	var candidates []entity.Locator

	value := original.Value()

	switch original.Kind() {
	case entity.KindID:
		if value != "" {
			candidates = append(candidates,
				entity.ByName(value),
				entity.ByClassName(value),
				entity.ByAttributeContains(testIDAttribute, value),
			)
		}
	case entity.KindXPath:
		if id, ok := predicateValue(idPredicate, value); ok && id != "" {
			candidates = append(candidates, entity.ByID(id))
		}

		if text, ok := predicateValue(textPredicate, value); ok && text != "" {
			candidates = append(candidates,
				entity.ByLinkText(text),
				entity.ByPartialLinkText(text),
			)
		}
	case entity.KindCSSSelector:
		switch {
		case strings.HasPrefix(value, "#") && len(value) > 1:
			candidates = append(candidates, entity.ByID(value[1:]))
		case strings.HasPrefix(value, ".") && len(value) > 1:
			candidates = append(candidates, entity.ByClassName(value[1:]))
		}
	}

	if description != "" {
		candidates = append(candidates, describedBy(description)...)
	}

	return candidates
}

func describedBy(description string) []entity.Locator {
	literal := XPathLiteral(description)

	return []entity.Locator{
		entity.ByXPath("//*[contains(text(), " + literal + ")]"),
		entity.ByXPath("//*[contains(@aria-label, " + literal + ")]"),
		entity.ByXPath("//*[contains(@placeholder, " + literal + ")]"),
	}
}

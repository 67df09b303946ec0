package browser

import (
	"strings"

	"locator-healing/internal/entity"
)

// playwrightSelector translates a locator into playwright's selector syntax.
// Attribute forms are used for id, name and class so values with CSS
// metacharacters still resolve.
func playwrightSelector(l entity.Locator) string {
	value := l.Value()

	switch l.Kind() {
	case entity.KindID:
		return attributeSelector("id", "=", value)
	case entity.KindName:
		return attributeSelector("name", "=", value)
	case entity.KindClassName:
		return attributeSelector("class", "~=", value)
	case entity.KindCSSSelector:
		return "css=" + value
	case entity.KindXPath:
		return "xpath=" + value
	case entity.KindLinkText:
		return "a:text-is(" + quoteCSS(value) + ")"
	case entity.KindPartialLinkText:
		return "a:has-text(" + quoteCSS(value) + ")"
	case entity.KindAttributeContains:
		return attributeSelector(l.Attribute(), "*=", value)
	default:
		return ""
	}
}

func attributeSelector(attribute, operator, value string) string {
	return "[" + attribute + operator + quoteCSS(value) + "]"
}

var cssQuoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)

func quoteCSS(value string) string {
	return `"` + cssQuoteReplacer.Replace(value) + `"`
}

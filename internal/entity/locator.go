package entity

import (
	"errors"
	"strings"

	"locator-healing/pkg/apperr"
)

type LocatorKind string

const (
	KindID                LocatorKind = "id"
	KindName              LocatorKind = "name"
	KindClassName         LocatorKind = "class"
	KindCSSSelector       LocatorKind = "css"
	KindXPath             LocatorKind = "xpath"
	KindLinkText          LocatorKind = "link"
	KindPartialLinkText   LocatorKind = "partial-link"
	KindAttributeContains LocatorKind = "attr-contains"
)

var knownKinds = map[LocatorKind]struct{}{
	KindID:                {},
	KindName:              {},
	KindClassName:         {},
	KindCSSSelector:       {},
	KindXPath:             {},
	KindLinkText:          {},
	KindPartialLinkText:   {},
	KindAttributeContains: {},
}

// Locator is an immutable element-selection expression. Two locators are equal
// (==) exactly when kind, attribute and value match.
type Locator struct {
	kind      LocatorKind
	attribute string
	value     string
}

func ByID(id string) Locator                { return Locator{kind: KindID, value: id} }
func ByName(name string) Locator            { return Locator{kind: KindName, value: name} }
func ByClassName(class string) Locator      { return Locator{kind: KindClassName, value: class} }
func ByCSSSelector(selector string) Locator { return Locator{kind: KindCSSSelector, value: selector} }
func ByXPath(expr string) Locator           { return Locator{kind: KindXPath, value: expr} }
func ByLinkText(text string) Locator        { return Locator{kind: KindLinkText, value: text} }
func ByPartialLinkText(text string) Locator { return Locator{kind: KindPartialLinkText, value: text} }

// ByAttributeContains matches elements whose attribute value contains value.
func ByAttributeContains(attribute, value string) Locator {
	return Locator{kind: KindAttributeContains, attribute: attribute, value: value}
}

func (l Locator) Kind() LocatorKind { return l.kind }
func (l Locator) Value() string     { return l.value }
func (l Locator) Attribute() string { return l.attribute }

func (l Locator) IsZero() bool {
	return l == Locator{}
}

// String returns the canonical form, "<kind>:<value>" or
// "attr-contains:<attribute>=<value>". It is the history cache key.
func (l Locator) String() string {
	if l.IsZero() {
		return ""
	}

	if l.kind == KindAttributeContains {
		return string(l.kind) + ":" + l.attribute + "=" + l.value
	}

	return string(l.kind) + ":" + l.value
}

// ParseLocator reads the canonical form produced by String.
func ParseLocator(s string) (Locator, error) {
	const op = "ParseLocator"

	rawKind, value, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Locator{}, apperr.InvalidReqError(op, "locator", errors.New("expected <kind>:<value>"))
	}

	kind := LocatorKind(strings.ToLower(strings.TrimSpace(rawKind)))
	if _, known := knownKinds[kind]; !known {
		return Locator{}, apperr.InvalidReqError(op, "kind", errors.New("unknown locator kind: "+rawKind))
	}

	if value == "" {
		return Locator{}, apperr.InvalidReqError(op, "value", errors.New("locator value cannot be empty"))
	}

	if kind == KindAttributeContains {
		attribute, contained, ok := strings.Cut(value, "=")
		if !ok || attribute == "" {
			return Locator{}, apperr.InvalidReqError(op, "attribute", errors.New("expected attr-contains:<attribute>=<value>"))
		}

		return ByAttributeContains(attribute, contained), nil
	}

	return Locator{kind: kind, value: value}, nil
}

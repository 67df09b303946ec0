package locator

import (
	"regexp"
	"strings"
)

var (
	idPredicate   = regexp.MustCompile(`@id\s*=\s*(?:'([^']*)'|"([^"]*)")`)
	textPredicate = regexp.MustCompile(`text\(\)\s*=\s*(?:'([^']*)'|"([^"]*)")`)
)

// predicateValue returns the quoted value of the first match of re in expr.
// Both patterns capture the single-quoted form in group 1 and the
// double-quoted form in group 2.
func predicateValue(re *regexp.Regexp, expr string) (string, bool) {
	idx := re.FindStringSubmatchIndex(expr)
	if idx == nil {
		return "", false
	}

	if idx[2] >= 0 {
		return expr[idx[2]:idx[3]], true
	}

	return expr[idx[4]:idx[5]], true
}

// XPathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is split into a concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	args := make([]string, 0, 2*len(parts)-1)

	for i, part := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}

		if part != "" {
			args = append(args, "'"+part+"'")
		}
	}

	return "concat(" + strings.Join(args, ", ") + ")"
}

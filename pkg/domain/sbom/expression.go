package sbom

import (
	"strings"
)

// SplitExpression expands an SPDX license expression into its license ids.
//
// Conjunction and disjunction operators are dropped, parentheses are ignored
// and "X WITH exception" contributes X only. Policy evaluation of the
// resulting tokens happens in the classification engine.
func SplitExpression(expr string) []string {
	expr = strings.NewReplacer("(", " ", ")", " ").Replace(expr)
	fields := strings.Fields(expr)

	tokens := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "OR", "AND":
			continue
		case "WITH":
			i++ // skip the exception id
			continue
		}
		tokens = append(tokens, fields[i])
	}
	return tokens
}

// isExpression reports whether an id-like string is really a compound
// expression: it is parenthesized or carries an AND, OR or WITH operator.
// A malformed id such as "BSD 3-Clause" stays a single token.
func isExpression(s string) bool {
	if strings.ContainsAny(s, "()") {
		return true
	}
	for _, f := range strings.Fields(s) {
		switch strings.ToUpper(f) {
		case "AND", "OR", "WITH":
			return true
		}
	}
	return false
}

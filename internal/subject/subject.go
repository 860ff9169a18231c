package subject

import "strings"

// Token is one canonicalized segment of a parsed subject.
type Token = string

// Structural and modifier tokens.
const (
	// ScopeEntity marks the following identifier as an entity reference.
	ScopeEntity = "#"

	// ScopeComponent marks the following identifier as a component name.
	ScopeComponent = "@"

	// Wildcard matches any one token at the final segment during publish.
	Wildcard = "*"

	// ModAdd marks a created/added notification.
	ModAdd = "+"

	// ModRemove marks a destroyed/removed notification.
	ModRemove = "-"

	// ModChange marks a changed notification.
	ModChange = "~"

	// ModCommand is reserved for command-style subjects.
	ModCommand = "!"

	// Separator is the character used to separate subject segments.
	Separator = "."
)

// isModifier reports whether s is one of the modifier tokens.
func isModifier(s string) bool {
	switch s {
	case ModAdd, ModRemove, ModChange, ModCommand:
		return true
	}
	return false
}

// Parse canonicalizes a subject string into its ordered token sequence.
//
// Parse is pure and total: it never fails on malformed input. Empty
// segments produced by consecutive or trailing separators are dropped.
// A leading modifier shorthand is rewritten as a trailing modifier
// token, so "+@health" and "@health.+" parse to the same sequence.
func Parse(s string) []Token {
	var trailing string
	if len(s) > 0 && isModifier(s[:1]) {
		trailing = s[:1]
		s = s[1:]
	}

	var tokens []Token
	for _, seg := range strings.Split(s, Separator) {
		if seg == "" {
			continue
		}
		switch seg[:1] {
		case ScopeEntity, ScopeComponent:
			tokens = append(tokens, seg[:1])
			if rest := seg[1:]; rest != "" {
				tokens = append(tokens, rest)
			}
		default:
			tokens = append(tokens, seg)
		}
	}

	if trailing != "" {
		tokens = append(tokens, trailing)
	}
	return tokens
}

// Join renders a token sequence back into a subject string. Scope
// prefixes are rejoined with their identifier so that
// Parse(Join(Parse(s))) is stable.
func Join(tokens []Token) string {
	var b strings.Builder
	for i, tok := range tokens {
		switch tok {
		case ScopeEntity, ScopeComponent:
			if b.Len() > 0 {
				b.WriteString(Separator)
			}
			b.WriteString(tok)
			// Absorb the identifier that follows a scope prefix, if any.
			if i+1 < len(tokens) && !isScopeOrModifier(tokens[i+1]) {
				continue
			}
		default:
			if i > 0 && isScopeToken(tokens[i-1]) && !isScopeOrModifier(tok) {
				b.WriteString(tok)
				continue
			}
			if b.Len() > 0 {
				b.WriteString(Separator)
			}
			b.WriteString(tok)
		}
	}
	return b.String()
}

func isScopeToken(s string) bool {
	return s == ScopeEntity || s == ScopeComponent
}

func isScopeOrModifier(s string) bool {
	return isScopeToken(s) || isModifier(s)
}

// Canonical returns the canonical string form of a subject: leading
// modifier shorthand rewritten trailing, empty segments dropped.
func Canonical(s string) string {
	return Join(Parse(s))
}

// Equal reports whether two subject strings denote the same token path.
func Equal(a, b string) bool {
	ta, tb := Parse(a), Parse(b)
	if len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		if ta[i] != tb[i] {
			return false
		}
	}
	return true
}

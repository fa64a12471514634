package repair

import (
	"strings"

	"golang.org/x/net/html"

	"iconrepair/dom"
)

const containsPseudo = ":contains"

// Querier runs a selector against a document. *dom.Document satisfies it
// with the host's native engine.
type Querier interface {
	QuerySelectorAll(selector string) ([]*html.Node, error)
}

// ContainsQuerier decorates a native Querier with a case-sensitive
// selector:contains(text) predicate. Selectors without :contains pass
// through untouched.
type ContainsQuerier struct {
	native Querier
}

// Extend wraps q. Extending an already extended querier returns it as is, so
// the interception is never stacked.
func Extend(q Querier) *ContainsQuerier {
	if cq, ok := q.(*ContainsQuerier); ok {
		return cq
	}
	return &ContainsQuerier{native: q}
}

// QuerySelectorAll resolves selector. For a containment selector the base
// part (or * when empty) is queried natively and filtered by descendant text
// content, keeping document order. A base selector the native engine rejects
// yields no nodes rather than an error.
func (c *ContainsQuerier) QuerySelectorAll(selector string) ([]*html.Node, error) {
	if !strings.Contains(selector, containsPseudo) {
		return c.native.QuerySelectorAll(selector)
	}
	base, text := splitContains(selector)
	if base == "" {
		base = "*"
	}
	nodes, err := c.native.QuerySelectorAll(base)
	if err != nil {
		return nil, nil
	}
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if strings.Contains(dom.TextContent(n), text) {
			out = append(out, n)
		}
	}
	return out, nil
}

// splitContains separates "base:contains(arg)" into the base selector and
// the search text. Anything after the closing parenthesis is ignored. A
// missing argument gives an empty search text.
func splitContains(selector string) (base, text string) {
	i := strings.Index(selector, containsPseudo)
	base = strings.TrimSpace(selector[:i])
	rest := strings.TrimLeft(selector[i+len(containsPseudo):], " \t\n")
	if !strings.HasPrefix(rest, "(") {
		return base, ""
	}
	end := len(rest)
	var quote byte
	for j := 1; j < len(rest); j++ {
		ch := rest[j]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == ')':
			end = j
		}
		if end != len(rest) {
			break
		}
	}
	arg := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '(', ')':
			return -1
		}
		return r
	}, rest[1:end])
	return base, strings.TrimSpace(arg)
}

package dom

import (
	"github.com/andybalholm/cascadia"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
)

// QueryFunc returns every element under root matching selector, in document
// order.
type QueryFunc func(root *html.Node, selector string) ([]*html.Node, error)

// MatchFunc reports whether el matches selector.
type MatchFunc func(el *html.Node, selector string) bool

// ClosestFunc returns the nearest inclusive ancestor of el matching selector.
type ClosestFunc func(el *html.Node, selector string) *html.Node

// Capabilities is the set of tree-query primitives a host exposes. A nil
// entry means the environment does not provide it.
type Capabilities struct {
	QueryAll QueryFunc
	Matches  MatchFunc
	Closest  ClosestFunc
	// VendorMatches holds prefixed matching primitives keyed by vendor
	// ("ms", "webkit").
	VendorMatches map[string]MatchFunc
}

// NativeCapabilities is a current host: everything provided.
func NativeCapabilities() Capabilities {
	return Capabilities{
		QueryAll: queryAll,
		Matches:  matches,
		Closest:  closest,
	}
}

// LegacyCapabilities is an older host with a query primitive, no standard
// matches or closest, and matching only under the given vendor prefixes.
func LegacyCapabilities(vendors ...string) Capabilities {
	c := Capabilities{QueryAll: queryAll}
	if len(vendors) > 0 {
		c.VendorMatches = make(map[string]MatchFunc, len(vendors))
		for _, v := range vendors {
			c.VendorMatches[v] = matches
		}
	}
	return c
}

func queryAll(root *html.Node, selector string) ([]*html.Node, error) {
	if root == nil {
		return nil, nil
	}
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, errors.Errorf("invalid selector %q: %w", selector, err)
	}
	return cascadia.QueryAll(root, group), nil
}

func matches(el *html.Node, selector string) bool {
	if el == nil || el.Type != html.ElementNode {
		return false
	}
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return false
	}
	return group.Match(el)
}

func closest(el *html.Node, selector string) *html.Node {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil
	}
	for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if group.Match(n) {
			return n
		}
	}
	return nil
}

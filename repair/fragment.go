package repair

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// MarkerName is the icon shortcode that failed to render.
	MarkerName = "material-language-uml"
	// Marker is the colon-wrapped form left behind in rendered text.
	Marker = ":" + MarkerName + ":"

	fragmentClass = "twemoji"
)

const glyphSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">` +
	`<path d="M9.5 8.5L11 13l1.5-4.5H14l-2 6h-2l-2-6h1.5m8.5.5a1 1 0 011 1v2h-2v-2a1 1 0 011-1m0-1a2 2 0 00-2 2v2a1 1 0 000 2v2h4v-2a1 1 0 000-2v-2a2 2 0 00-2-2m-1.5-2.09c-.5-.5-1.19-.82-1.91-.82H6a4 4 0 014-4h4a4 4 0 014 4v10a2 2 0 01-2 2H6a2 2 0 01-2-2V7.91c.5.5 1.19.82 1.91.82h8.18c.72 0 1.41-.32 1.91-.82zM14 3H8a2 2 0 00-2 2v8a2 2 0 002 2h8a2 2 0 002-2V5a2 2 0 00-2-2z" />` +
	`</svg>`

// FragmentMarkup returns the canonical replacement. Tagged fragments carry
// the marker name as an extra class so they can be told apart.
func FragmentMarkup(tagged bool) string {
	cls := fragmentClass
	if tagged {
		cls += " " + MarkerName
	}
	return `<span class="` + cls + `">` + glyphSVG + `</span>`
}

var fragmentContext = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

// newFragment parses a fresh, detached copy of the replacement.
func newFragment(tagged bool) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(FragmentMarkup(tagged)), fragmentContext)
	if err != nil {
		return nil
	}
	return nodes
}

type segment struct {
	text   string
	marker bool
}

// splitMarkers cuts s around every occurrence of tokens. At each position
// the earliest match wins; ties go to the token listed first, so list longer
// forms before the shorter forms they contain.
func splitMarkers(s string, tokens ...string) ([]segment, bool) {
	var segs []segment
	found := false
	for s != "" {
		at, tok := -1, ""
		for _, t := range tokens {
			if t == "" {
				continue
			}
			if i := strings.Index(s, t); i >= 0 && (at < 0 || i < at) {
				at, tok = i, t
			}
		}
		if at < 0 {
			segs = append(segs, segment{text: s})
			break
		}
		found = true
		if at > 0 {
			segs = append(segs, segment{text: s[:at]})
		}
		segs = append(segs, segment{text: tok, marker: true})
		s = s[at+len(tok):]
	}
	return segs, found
}

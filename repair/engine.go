// Package repair fixes icon shortcodes that reached the rendered page as
// plain text, replacing each with the inline SVG glyph it should have been.
// It runs once when the document is ready and again after every batch of
// structural mutations.
package repair

import (
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"iconrepair/dom"
)

const rawTextContainers = "script, style"

// PassStats counts the fragments one pass inserted, per fix.
type PassStats struct {
	Containers int
	ListItems  int
	TextNodes  int
}

// Total is the number of markers replaced.
func (s PassStats) Total() int { return s.Containers + s.ListItems + s.TextNodes }

// Engine performs repair passes over one document.
type Engine struct {
	doc       *dom.Document
	query     Querier
	logger    zerolog.Logger
	container string
	listItems string
}

// NewEngine builds an engine issuing its queries through q, which should
// understand :contains (see Extend).
func NewEngine(doc *dom.Document, q Querier, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		doc:       doc,
		query:     q,
		logger:    *cfg.Logger,
		container: strings.Join(cfg.Containers, ", "),
		listItems: cfg.ListItems + `:contains("` + MarkerName + `")`,
	}
}

// Pass runs the three fixes in order. Content that no longer holds a marker
// is never touched, so a pass over repaired content changes nothing.
func (e *Engine) Pass() PassStats {
	st := PassStats{
		Containers: e.fixContainers(),
		ListItems:  e.fixListItems(),
		TextNodes:  e.fixTextNodes(),
	}
	e.logger.Debug().
		Int("containers", st.Containers).
		Int("list_items", st.ListItems).
		Int("text_nodes", st.TextNodes).
		Msg("repair pass")
	return st
}

// fixContainers replaces colon-wrapped markers inside the configured content
// containers whose serialized content shows one.
func (e *Engine) fixContainers() int {
	nodes, err := e.query.QuerySelectorAll(e.container)
	if err != nil {
		return 0
	}
	n := 0
	for _, el := range nodes {
		inner, err := dom.InnerHTML(el)
		if err != nil || !strings.Contains(inner, Marker) {
			continue
		}
		n += e.replaceWithin(el, false, Marker)
	}
	return n
}

// fixListItems replaces the bare marker name in list items whose text holds
// it. Colon-wrapped occurrences are consumed whole.
func (e *Engine) fixListItems() int {
	nodes, err := e.query.QuerySelectorAll(e.listItems)
	if err != nil {
		return 0
	}
	n := 0
	for _, el := range nodes {
		n += e.replaceWithin(el, false, Marker, MarkerName)
	}
	return n
}

// fixTextNodes walks every element outside script and style and replaces
// colon-wrapped markers in its direct text children with tagged fragments.
func (e *Engine) fixTextNodes() int {
	nodes, err := e.query.QuerySelectorAll("*")
	if err != nil {
		return 0
	}
	n := 0
	for _, el := range nodes {
		if e.insideRawText(el) {
			continue
		}
		for _, run := range textRuns(el) {
			n += e.replaceRun(el, run, true, Marker)
		}
	}
	return n
}

// replaceWithin repairs every text run below el, skipping raw text
// containers. Runs are collected before anything is mutated.
func (e *Engine) replaceWithin(el *html.Node, tagged bool, tokens ...string) int {
	type job struct {
		parent *html.Node
		run    []*html.Node
	}
	var jobs []job
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.ElementNode && isRawText(x) {
			return
		}
		for _, run := range textRuns(x) {
			jobs = append(jobs, job{parent: x, run: run})
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				walk(c)
			}
		}
	}
	walk(el)

	n := 0
	for _, j := range jobs {
		n += e.replaceRun(j.parent, j.run, tagged, tokens...)
	}
	return n
}

// replaceRun swaps a run of adjacent text nodes for text segments and
// fragments. Surrounding text becomes new text nodes and is never parsed as
// markup. Nothing is mutated unless a token is present.
func (e *Engine) replaceRun(parent *html.Node, run []*html.Node, tagged bool, tokens ...string) int {
	var b strings.Builder
	for _, t := range run {
		b.WriteString(t.Data)
	}
	segs, found := splitMarkers(b.String(), tokens...)
	if !found {
		return 0
	}

	var nodes []*html.Node
	count := 0
	for _, s := range segs {
		if !s.marker {
			nodes = append(nodes, &html.Node{Type: html.TextNode, Data: s.text})
			continue
		}
		frag := newFragment(tagged)
		if len(frag) == 0 {
			return 0
		}
		nodes = append(nodes, frag...)
		count++
	}

	ref := run[len(run)-1].NextSibling
	for _, n := range nodes {
		if err := e.doc.InsertBefore(parent, n, ref); err != nil {
			e.logger.Debug().Err(err).Msg("insert replacement")
		}
	}
	for _, t := range run {
		_ = e.doc.RemoveChild(parent, t)
	}
	return count
}

// insideRawText uses the host's closest primitive, falling back to the
// element's own tag when the host has none.
func (e *Engine) insideRawText(el *html.Node) bool {
	if c := e.doc.Caps.Closest; c != nil && e.doc.Caps.Matches != nil {
		return c(el, rawTextContainers) != nil
	}
	return isRawText(el)
}

func isRawText(el *html.Node) bool {
	switch el.DataAtom {
	case atom.Script, atom.Style:
		return true
	}
	return false
}

// textRuns groups the direct text children of n into runs of adjacent
// siblings.
func textRuns(n *html.Node) [][]*html.Node {
	var runs [][]*html.Node
	var cur []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			cur = append(cur, c)
			continue
		}
		if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

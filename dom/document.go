// Package dom hosts a live HTML document. A Document owns the node tree,
// exposes the environment's query primitives and delivers batched mutation
// records to observers, the way a page does for the scripts running in it.
//
// A Document is single-threaded: it must only be used from one goroutine.
package dom

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrSettleLimit is returned by Settle when observers keep producing
	// records past the configured number of delivery rounds.
	ErrSettleLimit = errors.Base("dom: settle limit reached")
	// ErrNotFound is returned when a reference node is not a child of the
	// parent it was given with.
	ErrNotFound = errors.Base("dom: node is not a child of parent")
	// ErrHierarchy is returned when an insertion would make a node its own
	// ancestor or targets a node that cannot have children.
	ErrHierarchy = errors.Base("dom: hierarchy request")
)

const defaultSettleLimit = 64

// Document is a live tree plus the host facilities around it.
type Document struct {
	Root *html.Node
	// Caps is the capability surface scripts see. Shims may fill in
	// missing entries.
	Caps Capabilities

	logger      zerolog.Logger
	settleLimit int
	observers   []*Observer
	readyFns    []func(*Document)
	ready       bool
	settling    bool
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the host logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithCapabilities replaces the native capability surface.
func WithCapabilities(c Capabilities) Option {
	return func(d *Document) { d.Caps = c }
}

// WithSettleLimit bounds the number of delivery rounds one Settle call runs.
func WithSettleLimit(n int) Option {
	return func(d *Document) {
		if n > 0 {
			d.settleLimit = n
		}
	}
}

// New wraps an already parsed tree.
func New(root *html.Node, opts ...Option) *Document {
	d := &Document{
		Root:        root,
		Caps:        NativeCapabilities(),
		logger:      zerolog.Nop(),
		settleLimit: defaultSettleLimit,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Parse reads a full HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Errorf("parse document: %w", err)
	}
	return New(root, opts...), nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Body returns the body element, or nil when the tree has none.
func (d *Document) Body() *html.Node {
	return findElement(d.Root, atom.Body)
}

// Render serializes the whole tree.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.Root); err != nil {
		return errors.Errorf("render document: %w", err)
	}
	return nil
}

func (d *Document) String() string {
	var b strings.Builder
	_ = d.Render(&b)
	return b.String()
}

// QuerySelectorAll runs the host's native query primitive from the root.
func (d *Document) QuerySelectorAll(selector string) ([]*html.Node, error) {
	if d.Caps.QueryAll == nil {
		return nil, errors.Errorf("query %q: no query primitive", selector)
	}
	return d.Caps.QueryAll(d.Root, selector)
}

// OnReady registers fn to run when the document signals structure ready.
// Handlers registered after Ready never run.
func (d *Document) OnReady(fn func(*Document)) {
	if d.ready {
		return
	}
	d.readyFns = append(d.readyFns, fn)
}

// Ready fires the ready signal once, running handlers in registration order,
// then delivers any mutation batches they caused.
func (d *Document) Ready() error {
	if d.ready {
		return nil
	}
	d.ready = true
	fns := d.readyFns
	d.readyFns = nil
	for _, fn := range fns {
		fn(d)
	}
	return d.Settle()
}

// IsReady reports whether Ready has fired.
func (d *Document) IsReady() bool { return d.ready }

// Settle runs delivery rounds until no observer has queued records. Each
// round hands every observer with pending records exactly one batch; records
// produced by callbacks go into the next round. A nested call from inside a
// callback returns immediately and leaves delivery to the outer loop.
func (d *Document) Settle() error {
	if d.settling {
		return nil
	}
	d.settling = true
	defer func() { d.settling = false }()

	for round := 0; ; round++ {
		pending := d.pendingObservers()
		if len(pending) == 0 {
			return nil
		}
		if round >= d.settleLimit {
			d.logger.Warn().Int("rounds", round).Int("observers", len(pending)).Msg("mutation delivery did not settle")
			return errors.Errorf("%w after %d rounds", ErrSettleLimit, round)
		}
		for _, o := range pending {
			recs := o.TakeRecords()
			if len(recs) == 0 {
				continue
			}
			d.logger.Trace().Int("round", round).Int("records", len(recs)).Msg("deliver batch")
			o.cb(recs, o)
		}
	}
}

func (d *Document) pendingObservers() []*Observer {
	var out []*Observer
	for _, o := range d.observers {
		if len(o.queue) > 0 {
			out = append(out, o)
		}
	}
	return out
}

// InsertBefore inserts child into parent before ref, or at the end when ref
// is nil. A child that already has a parent is moved.
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if parent == nil || child == nil {
		return errors.WithStack(ErrHierarchy)
	}
	if ref != nil && ref.Parent != parent {
		return errors.WithStack(ErrNotFound)
	}
	if !canHaveChildren(parent) || isInclusiveAncestor(child, parent) {
		return errors.WithStack(ErrHierarchy)
	}
	if ref == child {
		ref = child.NextSibling
	}
	if child.Parent != nil {
		if err := d.RemoveChild(child.Parent, child); err != nil {
			return err
		}
	}
	prev := parent.LastChild
	if ref != nil {
		prev = ref.PrevSibling
	}
	parent.InsertBefore(child, ref)
	d.record(Record{
		Type:            ChildList,
		Target:          parent,
		Added:           []*html.Node{child},
		PreviousSibling: prev,
		NextSibling:     ref,
	})
	return nil
}

// AppendChild appends child to parent.
func (d *Document) AppendChild(parent, child *html.Node) error {
	return d.InsertBefore(parent, child, nil)
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) error {
	if parent == nil || child == nil || child.Parent != parent {
		return errors.WithStack(ErrNotFound)
	}
	prev, next := child.PrevSibling, child.NextSibling
	parent.RemoveChild(child)
	d.record(Record{
		Type:            ChildList,
		Target:          parent,
		Removed:         []*html.Node{child},
		PreviousSibling: prev,
		NextSibling:     next,
	})
	return nil
}

// SetInnerHTML replaces every child of el with the parsed markup. The change
// is reported as a single child-list record.
func (d *Document) SetInnerHTML(el *html.Node, markup string) error {
	if el == nil || el.Type != html.ElementNode {
		return errors.WithStack(ErrHierarchy)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), el)
	if err != nil {
		return errors.Errorf("parse fragment: %w", err)
	}
	removed := ChildNodes(el)
	for _, c := range removed {
		el.RemoveChild(c)
	}
	for _, n := range nodes {
		el.AppendChild(n)
	}
	if len(removed) == 0 && len(nodes) == 0 {
		return nil
	}
	d.record(Record{Type: ChildList, Target: el, Added: nodes, Removed: removed})
	return nil
}

// InsertAdjacentHTML parses markup in the context of el and appends the
// resulting nodes to it, one record per node.
func (d *Document) InsertAdjacentHTML(el *html.Node, markup string) error {
	if el == nil || el.Type != html.ElementNode {
		return errors.WithStack(ErrHierarchy)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), el)
	if err != nil {
		return errors.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		if err := d.AppendChild(el, n); err != nil {
			return err
		}
	}
	return nil
}

// SetText changes the data of a text or comment node.
func (d *Document) SetText(n *html.Node, text string) error {
	if n == nil || (n.Type != html.TextNode && n.Type != html.CommentNode) {
		return errors.WithStack(ErrHierarchy)
	}
	old := n.Data
	if old == text {
		return nil
	}
	n.Data = text
	d.record(Record{Type: CharacterData, Target: n, OldValue: old})
	return nil
}

func (d *Document) record(rec Record) {
	for _, o := range d.observers {
		if o.interested(rec) {
			o.queue = append(o.queue, rec)
		}
	}
}

func canHaveChildren(n *html.Node) bool {
	return n.Type == html.ElementNode || n.Type == html.DocumentNode
}

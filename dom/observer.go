package dom

import (
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
)

// RecordType names the kind of change a Record describes.
type RecordType string

const (
	ChildList     RecordType = "childList"
	CharacterData RecordType = "characterData"
)

// Record is a single tree mutation.
type Record struct {
	Type            RecordType
	Target          *html.Node
	Added           []*html.Node
	Removed         []*html.Node
	PreviousSibling *html.Node
	NextSibling     *html.Node
	OldValue        string
}

// ObserveOptions selects which mutations an observer receives.
type ObserveOptions struct {
	ChildList     bool
	CharacterData bool
	// Subtree extends the registration to every descendant of the target.
	Subtree bool
}

// Callback receives one batch of records.
type Callback func(records []Record, o *Observer)

// Observer queues records for its registrations and is handed them as one
// batch per delivery round.
type Observer struct {
	doc   *Document
	cb    Callback
	regs  []registration
	queue []Record
}

type registration struct {
	node *html.Node
	opts ObserveOptions
}

// NewObserver creates an observer whose callback runs during Settle.
func (d *Document) NewObserver(cb Callback) *Observer {
	o := &Observer{doc: d, cb: cb}
	d.observers = append(d.observers, o)
	return o
}

// Observe registers target. Observing the same node again replaces its
// options.
func (o *Observer) Observe(target *html.Node, opts ObserveOptions) error {
	if target == nil {
		return errors.New("observe: nil target")
	}
	if !opts.ChildList && !opts.CharacterData {
		return errors.New("observe: one of child list or character data must be requested")
	}
	for i := range o.regs {
		if o.regs[i].node == target {
			o.regs[i].opts = opts
			return nil
		}
	}
	o.regs = append(o.regs, registration{node: target, opts: opts})
	return nil
}

// Disconnect drops every registration and any undelivered records.
func (o *Observer) Disconnect() {
	o.regs = nil
	o.queue = nil
}

// TakeRecords empties the queue and returns what was in it.
func (o *Observer) TakeRecords() []Record {
	recs := o.queue
	o.queue = nil
	return recs
}

func (o *Observer) interested(rec Record) bool {
	for _, reg := range o.regs {
		switch rec.Type {
		case ChildList:
			if !reg.opts.ChildList {
				continue
			}
		case CharacterData:
			if !reg.opts.CharacterData {
				continue
			}
		}
		if rec.Target == reg.node {
			return true
		}
		if reg.opts.Subtree && isInclusiveAncestor(reg.node, rec.Target) {
			return true
		}
	}
	return false
}

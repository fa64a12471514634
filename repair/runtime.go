package repair

import (
	"github.com/rs/zerolog"

	"iconrepair/dom"
)

// Runtime wires the engine into a document's lifecycle: one pass when the
// document is ready, then one pass per delivered mutation batch.
type Runtime struct {
	doc      *dom.Document
	cfg      Config
	logger   zerolog.Logger
	engine   *Engine
	observer *dom.Observer

	passes       int
	batches      int
	replacements int
}

// Attach registers the runtime's single entry point on the document's ready
// signal. Nothing runs until the document fires it.
func Attach(doc *dom.Document, cfg Config) *Runtime {
	cfg = cfg.withDefaults()
	rt := &Runtime{doc: doc, cfg: cfg, logger: *cfg.Logger}
	doc.OnReady(rt.start)
	return rt
}

func (rt *Runtime) start(doc *dom.Document) {
	if InstallShim(doc) {
		rt.logger.Debug().Msg("installed query shims")
	}
	rt.engine = NewEngine(doc, Extend(doc), rt.cfg)
	rt.run()

	body := doc.Body()
	if body == nil {
		rt.logger.Debug().Msg("document has no body, not observing")
		return
	}
	rt.observer = doc.NewObserver(rt.onBatch)
	if err := rt.observer.Observe(body, dom.ObserveOptions{ChildList: true, Subtree: true}); err != nil {
		rt.logger.Debug().Err(err).Msg("observe body")
		rt.observer = nil
	}
}

func (rt *Runtime) onBatch(records []dom.Record, _ *dom.Observer) {
	rt.batches++
	rt.logger.Trace().Int("records", len(records)).Msg("mutation batch")
	rt.run()
}

func (rt *Runtime) run() {
	st := rt.engine.Pass()
	rt.passes++
	rt.replacements += st.Total()
}

// Stop disconnects the observer. Later mutations are left alone.
func (rt *Runtime) Stop() {
	if rt.observer != nil {
		rt.observer.Disconnect()
		rt.observer = nil
	}
}

// Engine returns the engine built at ready time, or nil before it.
func (rt *Runtime) Engine() *Engine { return rt.engine }

// Passes counts every pass run, including the initial one.
func (rt *Runtime) Passes() int { return rt.passes }

// Batches counts mutation batches delivered to the runtime.
func (rt *Runtime) Batches() int { return rt.batches }

// Replacements counts markers replaced across all passes.
func (rt *Runtime) Replacements() int { return rt.replacements }

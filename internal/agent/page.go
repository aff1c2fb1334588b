// Package agent runs a page agent: it watches focus in one document, reports
// eligible fields to the controller and injects text it is asked to.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"brainwave/internal/document"
	"brainwave/internal/domain"
	"brainwave/internal/focus"
	"brainwave/internal/inject"
	"brainwave/internal/router"
)

var ErrElementNotFound = errors.New("element not found")

// Bus is the router surface a page agent needs.
type Bus interface {
	Register(endpoint router.Endpoint, handler router.Handler)
	Unregister(endpoint router.Endpoint)
	Send(ctx context.Context, to router.Endpoint, req router.Request) (router.Response, error)
}

// Page binds one document to the router under its own endpoint. All document
// access goes through the page lock; document listeners run while it is held.
type Page struct {
	endpoint router.Endpoint
	doc      *document.Document
	resolver *focus.Resolver
	injector *inject.Injector
	bus      Bus
	logger   *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

func NewPage(endpoint router.Endpoint, doc *document.Document, bus Bus, logger *slog.Logger) *Page {
	logger = logger.With("component", "page_agent", "page", string(endpoint))
	return &Page{
		endpoint: endpoint,
		doc:      doc,
		resolver: focus.NewResolver(),
		injector: inject.NewInjector(logger),
		bus:      bus,
		logger:   logger,
		ctx:      context.Background(),
	}
}

func (p *Page) Endpoint() router.Endpoint { return p.endpoint }

// Attach starts observing focus and registers the page endpoint. ctx scopes
// the field notifications sent to the controller.
func (p *Page) Attach(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.doc.AddEventListener("focusin", p.onFocusIn)
	p.mu.Unlock()

	p.bus.Register(p.endpoint, p)
}

// Detach removes the page endpoint and forgets the tracked field.
func (p *Page) Detach() {
	p.bus.Unregister(p.endpoint)
	p.resolver.Forget()
}

func (p *Page) onFocusIn(ev document.Event) {
	target, ok := p.resolver.Observe(ev.Target)
	if !ok {
		return
	}
	_, err := p.bus.Send(p.ctx, router.ControllerEndpoint, router.FieldFocused{
		Field:  target.Descriptor,
		Sender: p.endpoint,
	})
	if err != nil {
		p.logger.Warn("failed to report focused field", "error", err)
	}
}

// HandleRequest answers INJECT_TEXT.
func (p *Page) HandleRequest(_ context.Context, req router.Request) (router.Response, error) {
	m, ok := req.(router.InjectText)
	if !ok {
		return router.Response{}, fmt.Errorf("%w: %s is not handled by a page", router.ErrUnknownAction, req.Action())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.resolver.Current()
	if target == nil {
		if active := p.doc.ActiveElement(); active != nil {
			target = &focus.Target{Element: active, Class: focus.Classify(active), Descriptor: focus.Describe(active)}
		}
	}

	delta := domain.TranscriptDelta{Content: m.Text, IsReplace: m.IsNewResponse}
	if err := p.injector.Inject(delta, target); err != nil {
		p.logger.Warn("injection skipped", "error", err)
		return router.Response{}, err
	}
	return router.Response{Result: router.StatusTextInjected}, nil
}

// Focus focuses the element with the given id, as a user click would.
func (p *Page) Focus(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el := p.doc.ElementByID(id)
	if el == nil {
		return fmt.Errorf("%w: #%s", ErrElementNotFound, id)
	}
	el.Focus()
	return nil
}

// Do runs fn with exclusive access to the document.
func (p *Page) Do(fn func(doc *document.Document) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.doc)
}

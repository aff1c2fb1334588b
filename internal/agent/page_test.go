package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"brainwave/internal/document"
	"brainwave/internal/domain"
	"brainwave/internal/router"
)

func TestPageReportsEligibleFocus(t *testing.T) {
	t.Parallel()

	bus, controller := newBusWithController()
	page := attachPage(t, bus, `<textarea id="notes" name="body" placeholder="Say something"></textarea><button id="send">Send</button>`)

	if err := page.Focus("notes"); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if err := page.Focus("send"); err != nil {
		t.Fatalf("focus: %v", err)
	}

	got := controller.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected one field report, got %d", len(got))
	}
	if got[0].Sender != "page-1" || got[0].Field.TagName != "textarea" || got[0].Field.ID != "notes" || got[0].Field.Placeholder != "Say something" {
		t.Fatalf("unexpected field report: %+v", got[0])
	}
}

func TestPageInjectsIntoLastEligibleField(t *testing.T) {
	t.Parallel()

	bus, _ := newBusWithController()
	page := attachPage(t, bus, `<textarea id="notes"></textarea><button id="send">Send</button>`)
	if err := page.Focus("notes"); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if err := page.Focus("send"); err != nil {
		t.Fatalf("focus: %v", err)
	}

	ctx := context.Background()
	if _, err := bus.Send(ctx, "page-1", router.InjectText{Text: "hi", IsNewResponse: true}); err != nil {
		t.Fatalf("inject: %v", err)
	}
	resp, err := bus.Send(ctx, "page-1", router.InjectText{Text: " there"})
	if err != nil || resp.Result != router.StatusTextInjected {
		t.Fatalf("unexpected inject response: %+v %v", resp, err)
	}

	err = page.Do(func(doc *document.Document) error {
		el := doc.ElementByID("notes")
		if el.Value() != "hi there" {
			t.Fatalf("unexpected value: %q", el.Value())
		}
		if doc.ActiveElement() != el {
			t.Fatalf("expected focus restored to the field")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestPageFallsBackToActiveElement(t *testing.T) {
	t.Parallel()

	doc, err := document.ParseString(`<div id="editor" contenteditable="true"></div>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc.ElementByID("editor").Focus()

	bus, controller := newBusWithController()
	page := NewPage("page-1", doc, bus, discardLogger())
	page.Attach(context.Background())

	if _, err := bus.Send(context.Background(), "page-1", router.InjectText{Text: "typed", IsNewResponse: true}); err != nil {
		t.Fatalf("inject: %v", err)
	}
	if got := doc.ElementByID("editor").TextContent(); got != "typed" {
		t.Fatalf("unexpected content: %q", got)
	}
	if len(controller.snapshot()) != 0 {
		t.Fatalf("fallback must not report a field focus")
	}
}

func TestPageWithoutTargetFails(t *testing.T) {
	t.Parallel()

	bus, _ := newBusWithController()
	attachPage(t, bus, `<button id="b"></button>`)

	_, err := bus.Send(context.Background(), "page-1", router.InjectText{Text: "lost"})
	if !errors.Is(err, domain.ErrNoEligibleTarget) {
		t.Fatalf("expected ErrNoEligibleTarget, got %v", err)
	}
}

func TestPageDetach(t *testing.T) {
	t.Parallel()

	bus, _ := newBusWithController()
	page := attachPage(t, bus, `<textarea id="t"></textarea>`)
	page.Detach()

	if _, err := bus.Send(context.Background(), "page-1", router.InjectText{Text: "x"}); !errors.Is(err, router.ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestPageRejectsOtherRequests(t *testing.T) {
	t.Parallel()

	bus, _ := newBusWithController()
	page := attachPage(t, bus, `<textarea id="t"></textarea>`)

	if err := page.Focus("missing"); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
	if _, err := bus.Send(context.Background(), "page-1", router.GetStatus{}); !errors.Is(err, router.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func attachPage(t *testing.T, bus *router.Bus, markup string) *Page {
	t.Helper()
	doc, err := document.ParseString(markup)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	page := NewPage("page-1", doc, bus, discardLogger())
	page.Attach(context.Background())
	return page
}

type fieldRecorder struct {
	mu     sync.Mutex
	fields []router.FieldFocused
}

func (r *fieldRecorder) HandleRequest(_ context.Context, req router.Request) (router.Response, error) {
	m, ok := req.(router.FieldFocused)
	if !ok {
		return router.Response{}, router.ErrUnknownAction
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = append(r.fields, m)
	return router.Response{Result: router.StatusFieldInfoUpdated}, nil
}

func (r *fieldRecorder) snapshot() []router.FieldFocused {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]router.FieldFocused(nil), r.fields...)
}

func newBusWithController() (*router.Bus, *fieldRecorder) {
	bus := router.NewBus()
	recorder := &fieldRecorder{}
	bus.Register(router.ControllerEndpoint, recorder)
	return bus, recorder
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

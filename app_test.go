package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"brainwave/internal/domain"
	"brainwave/internal/router"
)

func TestStatusMessage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		domain.StatusConnecting:   "Connecting to transcription service...",
		domain.StatusConnected:    "Connected",
		domain.StatusDisconnected: "Disconnected",
		domain.StatusRecording:    "Recording",
		domain.StatusStopped:      "Recording stopped",
	}

	for status, want := range cases {
		t.Run(status, func(t *testing.T) {
			t.Parallel()
			if got := statusMessage(router.StatusUpdate{Status: status}); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	update := router.StatusUpdate{Status: domain.StatusError, Code: domain.ErrorCodeTransportClosed, Error: "eof"}
	if got := statusMessage(update); got != "Connection to the transcription service lost" {
		t.Fatalf("unexpected error message: %q", got)
	}
	if got := statusMessage(router.StatusUpdate{Status: "unknown"}); got != "" {
		t.Fatalf("expected empty unknown status message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:          "Startup failed",
		domain.ErrorCodeCaptureDevice:    "Microphone unavailable",
		domain.ErrorCodeTransportConnect: "Could not reach the transcription service",
		domain.ErrorCodeTransportClosed:  "Connection to the transcription service lost",
		domain.ErrorCodeProtocol:         "Unexpected message from the transcription service",
		domain.ErrorCodeNoEligibleTarget: "No text field to fill",
		domain.ErrorCodeService:          "Transcription service error",
	}
	for code, want := range cases {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatalf("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.fail(bootErr)
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusWhenNotInitialized(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.SessionStateIdle || status.IsRecording {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.fail(errors.New("boot"))
	if info := app.GetRuntimeInfo(); info["error"] != "boot" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
}

func TestStartupFailureVisibleToConcurrentCallers(t *testing.T) {
	t.Parallel()

	emitted := &emitRecorder{}
	app := &App{ctx: context.Background(), emit: emitted.emit}
	bootErr := errors.New("config unreadable")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = app.requireReady()
			_ = app.GetRuntimeInfo()
		}()
	}
	app.fail(bootErr)
	wg.Wait()

	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
	if _, err := app.StartRecording(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error from start, got %v", err)
	}
	if info := app.GetRuntimeInfo(); info["error"] != "config unreadable" {
		t.Fatalf("unexpected runtime info: %v", info)
	}
	got := emitted.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected one startup event, got %+v", got)
	}
	if payload, ok := got[0].data.(map[string]string); !ok || payload["code"] != string(domain.ErrorCodeStartup) {
		t.Fatalf("unexpected startup events: %+v", got)
	}
}

func TestRecordingRoundTrip(t *testing.T) {
	t.Parallel()

	app, controller, _ := newTestApp(t)

	status, err := app.StartRecording()
	if err != nil || !status.IsRecording {
		t.Fatalf("unexpected start result: %+v %v", status, err)
	}
	status, err = app.StopRecording()
	if err != nil || status.IsRecording {
		t.Fatalf("unexpected stop result: %+v %v", status, err)
	}
	if got := controller.actions(); len(got) != 4 || got[0] != router.ActionStartRecording || got[2] != router.ActionStopRecording {
		t.Fatalf("unexpected controller requests: %v", got)
	}
}

func TestUpdateSettingsSendsBothFields(t *testing.T) {
	t.Parallel()

	app, controller, _ := newTestApp(t)
	if err := app.UpdateSettings("ws://speech.test/ws", false); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	patch := controller.lastPatch
	if patch.WebsocketURL == nil || *patch.WebsocketURL != "ws://speech.test/ws" || patch.AutoFill == nil || *patch.AutoFill {
		t.Fatalf("unexpected patch: %+v", patch)
	}
}

func TestCopyTranscription(t *testing.T) {
	t.Parallel()

	app, controller, _ := newTestApp(t)
	clip := &recordingClipboard{}
	app.clipboard = clip

	if err := app.CopyTranscription(); !errors.Is(err, ErrNothingToCopy) {
		t.Fatalf("expected ErrNothingToCopy, got %v", err)
	}

	controller.transcript = "hello world"
	if err := app.CopyTranscription(); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if clip.text != "hello world" {
		t.Fatalf("unexpected clipboard text: %q", clip.text)
	}

	clip.err = errors.New("no display")
	if err := app.CopyTranscription(); err == nil {
		t.Fatalf("expected clipboard error")
	}
}

func TestBroadcastsAreEmitted(t *testing.T) {
	t.Parallel()

	app, _, emitted := newTestApp(t)
	app.bus.Publish(router.TranscriptUpdate{Text: "hi", IsNewResponse: true})
	app.bus.Publish(router.StatusUpdate{Status: domain.StatusError, Code: domain.ErrorCodeCaptureDevice, Error: "busy"})

	app.detach()
	app.bus.Publish(router.StatusUpdate{Status: domain.StatusStopped})

	got := emitted.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 emitted events, got %d", len(got))
	}
	if got[0].name != eventTranscript {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	payload, ok := got[1].data.(map[string]string)
	if got[1].name != eventStatus || !ok || payload["code"] != "capture_device" || payload["message"] != "Microphone unavailable" {
		t.Fatalf("unexpected status event: %+v", got[1])
	}
}

func newTestApp(t *testing.T) (*App, *fakeController, *emitRecorder) {
	t.Helper()

	bus := router.NewBus()
	controller := &fakeController{}
	bus.Register(router.ControllerEndpoint, controller)

	emitted := &emitRecorder{}
	app := &App{ctx: context.Background(), emit: emitted.emit}
	app.attach(bus, staticSettings{})
	t.Cleanup(app.detach)
	return app, controller, emitted
}

type fakeController struct {
	mu         sync.Mutex
	recording  bool
	transcript string
	lastPatch  domain.SettingsPatch
	seen       []router.Action
}

func (f *fakeController) HandleRequest(_ context.Context, req router.Request) (router.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, req.Action())

	switch m := req.(type) {
	case router.StartRecording:
		f.recording = true
		return router.Response{Result: router.StatusRecordingStarted}, nil
	case router.StopRecording:
		f.recording = false
		return router.Response{Result: router.StatusRecordingStopped}, nil
	case router.GetStatus:
		return router.Response{Status: &domain.Status{IsRecording: f.recording}}, nil
	case router.UpdateSettings:
		f.lastPatch = m.Settings
		return router.Response{Result: router.StatusSettingsUpdated}, nil
	case router.GetTranscription:
		text := f.transcript
		return router.Response{Transcription: &text}, nil
	default:
		return router.Response{}, router.ErrUnknownAction
	}
}

func (f *fakeController) actions() []router.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]router.Action(nil), f.seen...)
}

type staticSettings struct{}

func (staticSettings) Settings() domain.Settings {
	return domain.Settings{WebsocketURL: "ws://localhost:3005/api/v1/ws", AutoFill: true}
}

func (staticSettings) Update(_ context.Context, _ domain.SettingsPatch) (domain.Settings, error) {
	return staticSettings{}.Settings(), nil
}

type recordingClipboard struct {
	text string
	err  error
}

func (c *recordingClipboard) SetText(_ context.Context, text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type emittedEvent struct {
	name string
	data any
}

type emitRecorder struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (r *emitRecorder) emit(_ context.Context, name string, data ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	r.events = append(r.events, emittedEvent{name: name, data: payload})
}

func (r *emitRecorder) snapshot() []emittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emittedEvent(nil), r.events...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"brainwave/internal/bootstrap"
	"brainwave/internal/config"
	"brainwave/internal/domain"
	"brainwave/internal/logging"
	"brainwave/internal/ports"
	"brainwave/internal/router"
)

const (
	eventStatus     = "brainwave:status"
	eventTranscript = "brainwave:transcript"
)

// ErrNothingToCopy is returned by CopyTranscription when the transcript is empty.
var ErrNothingToCopy = errors.New("transcript is empty")

type emitFunc func(ctx context.Context, name string, data ...any)

// App is the Wails application root. It is one UI panel on the router.
type App struct {
	ctx context.Context

	bus       *router.Bus
	settings  ports.SettingsStore
	clipboard ports.Clipboard
	emit      emitFunc
	cfg       config.Config
	services  *bootstrap.Services
	logger    *slog.Logger
	bootErr   error

	mu          sync.Mutex
	unsubscribe func()
}

func NewApp() *App {
	return &App{clipboard: &wailsClipboard{}, emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	if err != nil {
		a.fail(err)
		return
	}
	logger := logging.New(cfg.Log.Level, os.Stderr)

	services, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		a.fail(err)
		return
	}

	a.mu.Lock()
	a.cfg = cfg
	a.logger = logger
	a.services = &services
	a.mu.Unlock()
	a.attach(services.Bus, services.Settings)
	a.emitStatus(router.StatusUpdate{Status: domain.StatusStopped})
}

func (a *App) shutdown(ctx context.Context) {
	a.detach()
	a.mu.Lock()
	services, logger := a.services, a.logger
	a.mu.Unlock()
	if services == nil {
		return
	}
	if err := services.Close(ctx); err != nil {
		logger.Warn("shutdown failed", "error", err)
	}
}

// attach subscribes the panel to broadcasts on bus.
func (a *App) attach(bus *router.Bus, settings ports.SettingsStore) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bus = bus
	a.settings = settings
	a.unsubscribe = bus.Subscribe(a.onBroadcast)
}

func (a *App) detach() {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// StartRecording asks the controller to start a recording session.
func (a *App) StartRecording() (domain.Status, error) {
	if _, err := a.send(router.StartRecording{}); err != nil {
		return domain.Status{}, err
	}
	return a.GetStatus(), nil
}

// StopRecording stops the current session. Stopping while idle succeeds.
func (a *App) StopRecording() (domain.Status, error) {
	if _, err := a.send(router.StopRecording{}); err != nil {
		return domain.Status{}, err
	}
	return a.GetStatus(), nil
}

// GetStatus returns the controller status, or an idle status before boot.
func (a *App) GetStatus() domain.Status {
	resp, err := a.send(router.GetStatus{})
	if err != nil || resp.Status == nil {
		return domain.Status{State: domain.SessionStateIdle, TransportState: domain.ConnectionClosed}
	}
	return *resp.Status
}

func (a *App) GetSettings() (domain.Settings, error) {
	if err := a.requireReady(); err != nil {
		return domain.Settings{}, err
	}
	return a.settings.Settings(), nil
}

// UpdateSettings persists both panel settings. An empty URL keeps the
// stored one.
func (a *App) UpdateSettings(websocketURL string, autoFill bool) error {
	_, err := a.send(router.UpdateSettings{Settings: domain.SettingsPatch{
		WebsocketURL: &websocketURL,
		AutoFill:     &autoFill,
	}})
	return err
}

func (a *App) GetTranscription() (string, error) {
	resp, err := a.send(router.GetTranscription{})
	if err != nil {
		return "", err
	}
	if resp.Transcription == nil {
		return "", nil
	}
	return *resp.Transcription, nil
}

// CopyTranscription writes the current transcript to the system clipboard.
func (a *App) CopyTranscription() error {
	text, err := a.GetTranscription()
	if err != nil {
		return err
	}
	if text == "" {
		return ErrNothingToCopy
	}
	if err := a.clipboard.SetText(a.ctx, text); err != nil {
		return fmt.Errorf("copy transcript: %w", err)
	}
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	a.mu.Lock()
	bootErr, cfg := a.bootErr, a.cfg
	a.mu.Unlock()
	if bootErr != nil {
		return map[string]string{"error": bootErr.Error()}
	}

	return map[string]string{
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
		"sampleRate":       strconv.Itoa(cfg.Audio.TargetSampleRate),
		"store":            cfg.Store.Backend,
	}
}

func (a *App) send(req router.Request) (router.Response, error) {
	if err := a.requireReady(); err != nil {
		return router.Response{}, err
	}
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	a.mu.Lock()
	bus := a.bus
	a.mu.Unlock()
	return bus.Send(ctx, router.ControllerEndpoint, req)
}

func (a *App) requireReady() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.bus == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) fail(err error) {
	a.mu.Lock()
	a.bootErr = err
	a.mu.Unlock()
	a.emitStatus(router.StatusUpdate{
		Status: domain.StatusError,
		Error:  err.Error(),
		Code:   domain.ErrorCodeStartup,
	})
}

func (a *App) onBroadcast(b router.Broadcast) {
	switch m := b.(type) {
	case router.TranscriptUpdate:
		if a.ctx == nil {
			return
		}
		a.emit(a.ctx, eventTranscript, map[string]any{
			"text":          m.Text,
			"isNewResponse": m.IsNewResponse,
		})
	case router.StatusUpdate:
		a.emitStatus(m)
	}
}

func (a *App) emitStatus(update router.StatusUpdate) {
	if a.ctx == nil {
		return
	}
	a.emit(a.ctx, eventStatus, map[string]string{
		"status":  update.Status,
		"code":    string(update.Code),
		"message": statusMessage(update),
		"detail":  update.Error,
	})
}

func statusMessage(update router.StatusUpdate) string {
	switch update.Status {
	case domain.StatusConnecting:
		return "Connecting to transcription service..."
	case domain.StatusConnected:
		return "Connected"
	case domain.StatusDisconnected:
		return "Disconnected"
	case domain.StatusRecording:
		return "Recording"
	case domain.StatusStopped:
		return "Recording stopped"
	case domain.StatusError:
		return errorMessage(update.Code, update.Error)
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCaptureDevice:
		return "Microphone unavailable"
	case domain.ErrorCodeTransportConnect:
		return "Could not reach the transcription service"
	case domain.ErrorCodeTransportClosed:
		return "Connection to the transcription service lost"
	case domain.ErrorCodeProtocol:
		return "Unexpected message from the transcription service"
	case domain.ErrorCodeNoEligibleTarget:
		return "No text field to fill"
	case domain.ErrorCodeService:
		return "Transcription service error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

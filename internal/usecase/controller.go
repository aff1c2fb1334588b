package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"brainwave/internal/capture"
	"brainwave/internal/domain"
	"brainwave/internal/ports"
	"brainwave/internal/protocol"
	"brainwave/internal/router"
	"brainwave/internal/transcript"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrSessionBusy     = errors.New("recording session is starting or stopping")
)

// Config controls capture and framing.
type Config struct {
	Audio     ports.AudioConfig
	Encoder   capture.Config
	BlockSize int
	TapDir    string
}

// Messenger is the slice of the router the controller talks through.
type Messenger interface {
	Send(ctx context.Context, to router.Endpoint, req router.Request) (router.Response, error)
	Publish(msg router.Broadcast)
}

// Controller is the control plane: it runs the Idle/Starting/Recording/
// Stopping state machine, routes inbound service messages and answers
// router requests.
type Controller struct {
	audio      ports.AudioCapture
	transport  ports.Transport
	settings   ports.SettingsStore
	transcript *transcript.Aggregator
	messenger  Messenger
	cfg        Config
	logger     *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu          sync.Mutex
	state       domain.SessionState
	session     *recordingSession
	pendingOpen chan error
	// startLost marks a Starting session whose transport dropped after opening.
	startLost bool
	pageRoute router.Endpoint
	field     domain.FieldDescriptor
}

func NewController(
	audio ports.AudioCapture,
	transport ports.Transport,
	settings ports.SettingsStore,
	aggregator *transcript.Aggregator,
	messenger Messenger,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	if cfg.BlockSize < 256 {
		cfg.BlockSize = 4096
	}
	if cfg.Encoder.SourceRate <= 0 {
		cfg.Encoder.SourceRate = cfg.Audio.SampleRate
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		audio:      audio,
		transport:  transport,
		settings:   settings,
		transcript: aggregator,
		messenger:  messenger,
		cfg:        cfg,
		logger:     logger.With("component", "controller"),
		baseCtx:    ctx,
		cancel:     cancel,
		state:      domain.SessionStateIdle,
	}
	aggregator.Subscribe(c.transcriptApplied)
	return c
}

// Start opens the transport, acquires the capture device and activates the
// recording session. It blocks until the transport is OPEN or has failed.
// Starting while already recording is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case domain.SessionStateRecording:
		c.mu.Unlock()
		return nil
	case domain.SessionStateStarting, domain.SessionStateStopping:
		c.mu.Unlock()
		return ErrSessionBusy
	}
	c.state = domain.SessionStateStarting
	c.startLost = false
	opened := make(chan error, 1)
	c.pendingOpen = opened
	c.mu.Unlock()

	address := c.settings.Settings().WebsocketURL
	c.logger.Info("starting recording", "address", address)
	c.transport.Connect(ctx, address)

	var err error
	select {
	case err = <-opened:
	case <-ctx.Done():
		err = ctx.Err()
		_ = c.transport.Close()
	}
	if err != nil {
		c.failStart(err)
		return err
	}

	// The device outlives the caller's request; it is bound to the controller.
	audioSession, err := c.audio.Start(c.baseCtx, c.cfg.Audio)
	if err != nil {
		err = wrapCaptureErr(err)
		_ = c.transport.Close()
		c.failStart(err)
		return err
	}

	if c.transport.State() != domain.ConnectionOpen {
		_ = audioSession.Stop()
		err = fmt.Errorf("%w: lost before recording began", domain.ErrTransportClosed)
		c.failStart(err)
		return err
	}

	id := uuid.NewString()
	var tap *capture.WAVTap
	if c.cfg.TapDir != "" {
		tap, err = capture.OpenWAVTap(c.cfg.TapDir, id, c.cfg.Encoder.TargetRate)
		if err != nil {
			c.logger.Warn("wav tap disabled", "error", err)
			tap = nil
		}
	}
	session := newRecordingSession(id, audioSession, tap)

	var frameTap capture.FrameTap
	if tap != nil {
		frameTap = tap
	}
	encoder := capture.NewEncoder(session, c.transport, frameTap, c.cfg.Encoder, c.logger)

	c.mu.Lock()
	if c.state != domain.SessionStateStarting || c.startLost {
		lost := c.state == domain.SessionStateStarting
		c.mu.Unlock()
		_ = audioSession.Stop()
		if tap != nil {
			_ = tap.Close()
		}
		err = fmt.Errorf("%w: start interrupted", domain.ErrTransportClosed)
		if lost {
			c.failStart(err)
		}
		return err
	}
	session.activate()
	c.session = session
	c.state = domain.SessionStateRecording
	c.mu.Unlock()

	go pumpAudioBlocks(session.audio, encoder, c.cfg.BlockSize, func(err error) {
		c.captureFailed(session, err)
	}, session.done)
	if tap != nil {
		go func() {
			<-session.done
			if err := tap.Close(); err != nil {
				c.logger.Warn("failed to close wav tap", "session_id", id, "error", err)
			}
		}()
	}

	if err := c.transport.SendJSON(protocol.StartRecording()); err != nil {
		c.logger.Warn("failed to send start_recording", "error", err)
	}
	c.logger.Info("recording started", "session_id", id)
	c.messenger.Publish(router.StatusUpdate{Status: domain.StatusRecording})
	return nil
}

// Stop deactivates the session. The encoder releases the device on its next
// block. The transport stays open so trailing transcripts still arrive.
func (c *Controller) Stop(_ context.Context) error {
	c.mu.Lock()
	if c.state != domain.SessionStateRecording || c.session == nil {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	session := c.session
	c.state = domain.SessionStateStopping
	session.deactivate()
	c.mu.Unlock()

	if c.transport.State() == domain.ConnectionOpen {
		if err := c.transport.SendJSON(protocol.StopRecording()); err != nil {
			c.logger.Warn("failed to send stop_recording", "error", err)
		}
	}

	c.mu.Lock()
	if c.session == session {
		c.session = nil
	}
	c.state = domain.SessionStateIdle
	c.mu.Unlock()

	c.logger.Info("recording stopped", "session_id", session.id)
	c.messenger.Publish(router.StatusUpdate{Status: domain.StatusStopped})
	return nil
}

// Status returns the current runtime status.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	state := c.state
	var id string
	if c.session != nil {
		id = c.session.id
	}
	c.mu.Unlock()

	return domain.Status{
		IsRecording:    state == domain.SessionStateRecording,
		TransportState: c.transport.State(),
		State:          state,
		SessionID:      id,
	}
}

// FocusedField returns the descriptor of the last eligible focused field.
func (c *Controller) FocusedField() domain.FieldDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.field
}

// Shutdown stops any session, waits for the device to be released and
// closes the transport.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if err := c.Stop(ctx); err != nil && !errors.Is(err, ErrNoActiveSession) {
		return err
	}
	if session != nil {
		_ = session.audio.Stop()
		select {
		case <-session.done:
		case <-ctx.Done():
		}
	}
	c.cancel()
	return c.transport.Close()
}

// HandleRequest answers router requests addressed to the controller.
func (c *Controller) HandleRequest(ctx context.Context, req router.Request) (router.Response, error) {
	switch m := req.(type) {
	case router.StartRecording:
		if err := c.Start(ctx); err != nil {
			return router.Response{}, err
		}
		return router.Response{Result: router.StatusRecordingStarted}, nil
	case router.StopRecording:
		if err := c.Stop(ctx); err != nil && !errors.Is(err, ErrNoActiveSession) {
			return router.Response{}, err
		}
		return router.Response{Result: router.StatusRecordingStopped}, nil
	case router.GetStatus:
		status := c.Status()
		return router.Response{Status: &status}, nil
	case router.UpdateSettings:
		if _, err := c.settings.Update(ctx, m.Settings); err != nil {
			return router.Response{}, err
		}
		return router.Response{Result: router.StatusSettingsUpdated}, nil
	case router.FieldFocused:
		c.mu.Lock()
		c.field = m.Field
		if m.Sender != "" {
			c.pageRoute = m.Sender
		}
		c.mu.Unlock()
		c.logger.Debug("field focused", "tag", m.Field.TagName, "id", m.Field.ID, "page", m.Sender)
		return router.Response{Result: router.StatusFieldInfoUpdated}, nil
	case router.GetTranscription:
		text := c.transcript.Current()
		return router.Response{Transcription: &text}, nil
	default:
		return router.Response{}, fmt.Errorf("%w: %s is not handled by the controller", router.ErrUnknownAction, req.Action())
	}
}

// TransportStateChanged resolves a pending start and aborts a running
// session when the connection fails or closes. A drop after the open has
// resolved but before activation fails the start.
func (c *Controller) TransportStateChanged(state domain.ConnectionState, err error) {
	c.mu.Lock()
	pending := c.pendingOpen
	if pending != nil && (state == domain.ConnectionOpen || state == domain.ConnectionErrored) {
		c.pendingOpen = nil
	} else {
		pending = nil
	}
	if (state == domain.ConnectionErrored || state == domain.ConnectionClosed) &&
		c.state == domain.SessionStateStarting && pending == nil && c.pendingOpen == nil {
		c.startLost = true
	}
	var aborted *recordingSession
	if (state == domain.ConnectionErrored || state == domain.ConnectionClosed) && c.state == domain.SessionStateRecording {
		aborted = c.session
		c.session = nil
		c.state = domain.SessionStateIdle
		if aborted != nil {
			aborted.deactivate()
		}
	}
	c.mu.Unlock()

	if pending != nil {
		if state == domain.ConnectionOpen {
			pending <- nil
		} else {
			pending <- err
		}
	}

	switch state {
	case domain.ConnectionConnecting:
		c.messenger.Publish(router.StatusUpdate{Status: domain.StatusConnecting})
	case domain.ConnectionOpen:
		c.messenger.Publish(router.StatusUpdate{Status: domain.StatusConnected})
	case domain.ConnectionClosed:
		c.messenger.Publish(router.StatusUpdate{Status: domain.StatusDisconnected})
	case domain.ConnectionErrored:
		c.logger.Warn("transport failed", "error", err)
		c.messenger.Publish(errorUpdate(err, transportCode(err)))
	}

	if aborted != nil {
		c.logger.Warn("recording aborted by transport", "session_id", aborted.id, "state", state)
		c.messenger.Publish(router.StatusUpdate{Status: domain.StatusStopped})
	}
}

// TransportMessage routes one inbound service message by kind.
func (c *Controller) TransportMessage(payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		c.logger.Warn("dropping inbound message", "error", err)
		c.messenger.Publish(errorUpdate(err, domain.ErrorCodeProtocol))
		return
	}

	switch msg.Kind {
	case protocol.KindStatus:
		c.messenger.Publish(router.StatusUpdate{Status: msg.Status})
	case protocol.KindText:
		c.transcript.Apply(c.baseCtx, msg.Delta())
	case protocol.KindError:
		c.logger.Error("service reported error", "content", msg.Content)
		c.messenger.Publish(router.StatusUpdate{
			Status: domain.StatusError,
			Error:  msg.Content,
			Code:   domain.ErrorCodeService,
		})
	default:
		c.logger.Debug("ignoring inbound message", "type", msg.Kind)
	}
}

// transcriptApplied fans one delta out to UI panels and, when auto fill is
// on, to the page that last reported a focused field.
func (c *Controller) transcriptApplied(ctx context.Context, delta domain.TranscriptDelta) {
	c.messenger.Publish(router.TranscriptUpdate{Text: delta.Content, IsNewResponse: delta.IsReplace})

	if !c.settings.Settings().AutoFill {
		return
	}
	c.mu.Lock()
	route := c.pageRoute
	c.mu.Unlock()
	if route == "" {
		return
	}

	_, err := c.messenger.Send(ctx, route, router.InjectText{Text: delta.Content, IsNewResponse: delta.IsReplace})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoEligibleTarget):
		c.logger.Info("injection skipped", "page", route, "error", err)
		c.messenger.Publish(errorUpdate(err, domain.ErrorCodeNoEligibleTarget))
	default:
		c.logger.Warn("injection failed", "page", route, "error", err)
	}
}

func (c *Controller) captureFailed(session *recordingSession, err error) {
	c.mu.Lock()
	if c.session != session || !session.deactivate() {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.state = domain.SessionStateIdle
	c.mu.Unlock()

	c.logger.Error("capture failed", "session_id", session.id, "error", err)
	c.messenger.Publish(errorUpdate(err, domain.ErrorCodeCaptureDevice))
	c.messenger.Publish(router.StatusUpdate{Status: domain.StatusStopped})
}

func (c *Controller) failStart(err error) {
	c.mu.Lock()
	c.pendingOpen = nil
	if c.state == domain.SessionStateStarting {
		c.state = domain.SessionStateIdle
	}
	c.mu.Unlock()

	c.logger.Error("failed to start recording", "error", err)
	switch {
	case errors.Is(err, domain.ErrTransportConnect):
		// already broadcast by the transport state change
	case errors.Is(err, domain.ErrCaptureDevice):
		c.messenger.Publish(errorUpdate(err, domain.ErrorCodeCaptureDevice))
	case errors.Is(err, domain.ErrTransportClosed):
		c.messenger.Publish(errorUpdate(err, domain.ErrorCodeTransportClosed))
	default:
		c.messenger.Publish(errorUpdate(err, domain.ErrorCodeStartup))
	}
}

func wrapCaptureErr(err error) error {
	if errors.Is(err, domain.ErrCaptureDevice) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrCaptureDevice, err)
}

func transportCode(err error) domain.ErrorCode {
	if errors.Is(err, domain.ErrTransportConnect) {
		return domain.ErrorCodeTransportConnect
	}
	return domain.ErrorCodeTransportClosed
}

func errorUpdate(err error, code domain.ErrorCode) router.StatusUpdate {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return router.StatusUpdate{Status: domain.StatusError, Error: msg, Code: code}
}

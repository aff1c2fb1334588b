package ports

import (
	"context"
	"io"

	"brainwave/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	InputFormat string
	InputDevice string
}

// AudioSession is an acquired input device. Reads yield mono float32
// little-endian samples in [-1, 1]; Stop releases the device.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture acquires microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Transport is one persistent, message-framed connection to the
// transcription service. Connect is asynchronous; progress is reported to
// the TransportObserver.
type Transport interface {
	Connect(ctx context.Context, address string)
	State() domain.ConnectionState
	SendBinary(payload []byte) error
	SendJSON(v any) error
	Close() error
}

// TransportObserver receives transport lifecycle and inbound messages.
type TransportObserver interface {
	TransportStateChanged(state domain.ConnectionState, err error)
	TransportMessage(payload []byte)
}

// SettingsStore exposes the persisted user settings.
type SettingsStore interface {
	Settings() domain.Settings
	Update(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error)
}

// Element is a live handle to one node of a host document.
type Element interface {
	TagName() string
	Attribute(name string) string
	InputType() string
	IsContentEditable() bool
	IsConnected() bool

	Value() string
	SetValue(value string)
	ClearChildren()
	AppendText(text string)

	DispatchInput()
	ScrollToEnd()
	Focus()
	CollapseSelectionToEnd()
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

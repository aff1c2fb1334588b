package domain

import "encoding/binary"

// SessionState models the controller lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateStarting  SessionState = "starting"
	SessionStateRecording SessionState = "recording"
	SessionStateStopping  SessionState = "stopping"
)

// ConnectionState is owned by the stream transport.
type ConnectionState string

const (
	ConnectionClosed     ConnectionState = "closed"
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
	ConnectionErrored    ConnectionState = "errored"
)

// ErrorCode identifies the failure kind carried on status broadcasts.
type ErrorCode string

const (
	ErrorCodeCaptureDevice    ErrorCode = "capture_device"
	ErrorCodeTransportConnect ErrorCode = "transport_connect"
	ErrorCodeTransportClosed  ErrorCode = "transport_closed"
	ErrorCodeProtocol         ErrorCode = "protocol"
	ErrorCodeNoEligibleTarget ErrorCode = "no_eligible_target"
	ErrorCodeService          ErrorCode = "service"
	ErrorCodeStartup          ErrorCode = "startup"
)

// Status values broadcast to UI contexts.
const (
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusRecording    = "recording"
	StatusStopped      = "stopped"
	StatusError        = "error"
)

// TranscriptDelta is one incremental transcript update.
type TranscriptDelta struct {
	Content   string `json:"content"`
	IsReplace bool   `json:"isReplace"`
}

// AudioFrame is one block of mono 16-bit samples at SampleRate.
type AudioFrame struct {
	Samples    []int16
	SampleRate int
}

// Bytes encodes the frame as raw little-endian PCM with no header.
func (f AudioFrame) Bytes() []byte {
	out := make([]byte, len(f.Samples)*2)
	for i, s := range f.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// CapabilityClass governs how text is injected into an element.
type CapabilityClass int

const (
	Ineligible CapabilityClass = iota
	PlainValue
	ContentEditable
)

func (c CapabilityClass) String() string {
	switch c {
	case PlainValue:
		return "plain_value"
	case ContentEditable:
		return "content_editable"
	default:
		return "ineligible"
	}
}

// FieldDescriptor describes a focused field for display purposes.
type FieldDescriptor struct {
	TagName           string `json:"tagName"`
	ID                string `json:"id"`
	Name              string `json:"name"`
	ClassName         string `json:"className"`
	Placeholder       string `json:"placeholder"`
	IsContentEditable bool   `json:"isContentEditable"`
}

// Settings is the persisted user configuration.
type Settings struct {
	WebsocketURL string `json:"websocketUrl"`
	AutoFill     bool   `json:"autoFill"`
}

// SettingsPatch carries a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	WebsocketURL *string `json:"websocketUrl,omitempty"`
	AutoFill     *bool   `json:"autoFill,omitempty"`
}

// Status summarizes the current runtime status.
type Status struct {
	IsRecording    bool            `json:"isRecording"`
	TransportState ConnectionState `json:"transportState"`
	State          SessionState    `json:"state"`
	SessionID      string          `json:"sessionId,omitempty"`
}

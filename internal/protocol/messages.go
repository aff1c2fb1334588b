// Package protocol defines the JSON control messages exchanged with the
// transcription service. Audio travels separately as raw binary frames.
package protocol

import (
	"fmt"

	"github.com/tidwall/gjson"

	"brainwave/internal/domain"
)

// Kind is the declared type of an inbound message.
type Kind string

const (
	KindStatus Kind = "status"
	KindText   Kind = "text"
	KindError  Kind = "error"
)

// Control is an outbound control message.
type Control struct {
	Type string `json:"type"`
}

func StartRecording() Control { return Control{Type: "start_recording"} }

func StopRecording() Control { return Control{Type: "stop_recording"} }

// Inbound is one decoded service message. Kinds other than status, text and
// error are returned as-is so the caller can ignore them.
type Inbound struct {
	Kind          Kind
	Status        string
	Content       string
	IsNewResponse bool
}

// Delta converts a text message into a transcript delta.
func (m Inbound) Delta() domain.TranscriptDelta {
	return domain.TranscriptDelta{Content: m.Content, IsReplace: m.IsNewResponse}
}

// Decode parses an inbound text frame. Structural problems are reported as
// domain.ErrProtocol.
func Decode(payload []byte) (Inbound, error) {
	if !gjson.ValidBytes(payload) {
		return Inbound{}, fmt.Errorf("%w: invalid json", domain.ErrProtocol)
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return Inbound{}, fmt.Errorf("%w: expected object", domain.ErrProtocol)
	}

	kind := root.Get("type")
	if kind.Type != gjson.String || kind.Str == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", domain.ErrProtocol)
	}
	msg := Inbound{Kind: Kind(kind.Str)}

	switch msg.Kind {
	case KindStatus:
		status := root.Get("status")
		if status.Type != gjson.String {
			return Inbound{}, fmt.Errorf("%w: status message without status", domain.ErrProtocol)
		}
		msg.Status = status.Str
	case KindText:
		content := root.Get("content")
		if content.Type != gjson.String {
			return Inbound{}, fmt.Errorf("%w: text message without content", domain.ErrProtocol)
		}
		msg.Content = content.Str
		msg.IsNewResponse = root.Get("isNewResponse").Bool()
	case KindError:
		msg.Content = root.Get("content").String()
	}
	return msg, nil
}

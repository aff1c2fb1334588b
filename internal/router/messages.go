// Package router carries typed requests and broadcasts between the
// controller, page agents and UI panels.
package router

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"brainwave/internal/domain"
)

// Action names a message on the wire.
type Action string

const (
	ActionStartRecording   Action = "START_RECORDING"
	ActionStopRecording    Action = "STOP_RECORDING"
	ActionGetStatus        Action = "GET_STATUS"
	ActionUpdateSettings   Action = "UPDATE_SETTINGS"
	ActionFieldFocused     Action = "FIELD_FOCUSED"
	ActionGetTranscription Action = "GET_TRANSCRIPTION"
	ActionInjectText       Action = "INJECT_TEXT"
	ActionTranscriptUpdate Action = "TRANSCRIPT_UPDATE"
	ActionStatusUpdate     Action = "STATUS_UPDATE"
)

// Request is one of the request variants declared in this package.
type Request interface {
	Action() Action
	request()
}

type StartRecording struct{}

type StopRecording struct{}

type GetStatus struct{}

type GetTranscription struct{}

type UpdateSettings struct {
	Settings domain.SettingsPatch `json:"settings"`
}

// FieldFocused reports a newly focused eligible field. Sender is the page
// endpoint that injection requests should be routed back to.
type FieldFocused struct {
	Field  domain.FieldDescriptor `json:"fieldData"`
	Sender Endpoint               `json:"sender,omitempty"`
}

type InjectText struct {
	Text          string `json:"text"`
	IsNewResponse bool   `json:"isNewResponse"`
}

func (StartRecording) Action() Action   { return ActionStartRecording }
func (StopRecording) Action() Action    { return ActionStopRecording }
func (GetStatus) Action() Action        { return ActionGetStatus }
func (GetTranscription) Action() Action { return ActionGetTranscription }
func (UpdateSettings) Action() Action   { return ActionUpdateSettings }
func (FieldFocused) Action() Action     { return ActionFieldFocused }
func (InjectText) Action() Action       { return ActionInjectText }

func (StartRecording) request()   {}
func (StopRecording) request()    {}
func (GetStatus) request()        {}
func (GetTranscription) request() {}
func (UpdateSettings) request()   {}
func (FieldFocused) request()     {}
func (InjectText) request()       {}

// Response status values.
const (
	StatusRecordingStarted = "recording_started"
	StatusRecordingStopped = "recording_stopped"
	StatusSettingsUpdated  = "settings_updated"
	StatusFieldInfoUpdated = "field_info_updated"
	StatusTextInjected     = "text_injected"
)

// Response answers exactly one request. Result carries one of the status
// values above; Status is set by GET_STATUS.
type Response struct {
	Result string `json:"status,omitempty"`
	*domain.Status
	Transcription *string `json:"transcription,omitempty"`
}

// Broadcast is a fan-out notification with no response.
type Broadcast interface {
	Action() Action
	broadcast()
}

type TranscriptUpdate struct {
	Text          string `json:"text"`
	IsNewResponse bool   `json:"isNewResponse"`
}

type StatusUpdate struct {
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	Code   domain.ErrorCode `json:"code,omitempty"`
}

func (TranscriptUpdate) Action() Action { return ActionTranscriptUpdate }
func (StatusUpdate) Action() Action     { return ActionStatusUpdate }

func (TranscriptUpdate) broadcast() {}
func (StatusUpdate) broadcast()     {}

// DecodeRequest parses an action envelope such as
// {"action":"INJECT_TEXT","text":"hi","isNewResponse":true}.
func DecodeRequest(data []byte) (Request, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode request: invalid json")
	}
	action := Action(gjson.GetBytes(data, "action").String())

	var req Request
	switch action {
	case ActionStartRecording:
		return StartRecording{}, nil
	case ActionStopRecording:
		return StopRecording{}, nil
	case ActionGetStatus:
		return GetStatus{}, nil
	case ActionGetTranscription:
		return GetTranscription{}, nil
	case ActionUpdateSettings:
		var m UpdateSettings
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", action, err)
		}
		req = m
	case ActionFieldFocused:
		var m FieldFocused
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", action, err)
		}
		req = m
	case ActionInjectText:
		var m InjectText
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", action, err)
		}
		req = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return req, nil
}

// EncodeBroadcast renders b with its action field.
func EncodeBroadcast(b Broadcast) ([]byte, error) {
	switch m := b.(type) {
	case TranscriptUpdate:
		return json.Marshal(struct {
			Action Action `json:"action"`
			TranscriptUpdate
		}{m.Action(), m})
	case StatusUpdate:
		return json.Marshal(struct {
			Action Action `json:"action"`
			StatusUpdate
		}{m.Action(), m})
	default:
		return nil, fmt.Errorf("encode broadcast: unsupported %T", b)
	}
}

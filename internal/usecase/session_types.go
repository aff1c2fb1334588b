package usecase

import (
	"sync/atomic"

	"brainwave/internal/capture"
	"brainwave/internal/ports"
)

// recordingSession is the process-wide recording flag plus the resources the
// audio pump owns for one start/stop cycle.
type recordingSession struct {
	id     string
	active atomic.Bool

	audio ports.AudioSession
	tap   *capture.WAVTap
	done  chan struct{}
}

func newRecordingSession(id string, audio ports.AudioSession, tap *capture.WAVTap) *recordingSession {
	return &recordingSession{
		id:    id,
		audio: audio,
		tap:   tap,
		done:  make(chan struct{}),
	}
}

func (s *recordingSession) Active() bool { return s.active.Load() }

func (s *recordingSession) activate() { s.active.Store(true) }

// deactivate reports whether the session was active before the call.
func (s *recordingSession) deactivate() bool { return s.active.Swap(false) }

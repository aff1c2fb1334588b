// Package capture turns captured audio blocks into protocol frames.
package capture

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"brainwave/internal/domain"
	"brainwave/internal/pcm"
)

// Gate reports whether the recording session is still active.
type Gate interface {
	Active() bool
}

// FrameSink is the subset of the transport the encoder needs.
type FrameSink interface {
	State() domain.ConnectionState
	SendBinary(payload []byte) error
}

// FrameTap observes every frame handed to the transport.
type FrameTap interface {
	WriteFrame(frame domain.AudioFrame) error
}

// Config sets the encoder's source and protocol rates.
type Config struct {
	SourceRate int
	TargetRate int
}

// Encoder converts one block per capture period into a frame and sends it
// when the transport is open. Frames that cannot be sent are dropped.
type Encoder struct {
	gate   Gate
	sink   FrameSink
	tap    FrameTap
	cfg    Config
	logger *slog.Logger

	dropLog *rate.Limiter
	sent    atomic.Int64
	dropped atomic.Int64
}

func NewEncoder(gate Gate, sink FrameSink, tap FrameTap, cfg Config, logger *slog.Logger) *Encoder {
	if cfg.TargetRate <= 0 {
		cfg.TargetRate = cfg.SourceRate
	}
	return &Encoder{
		gate:    gate,
		sink:    sink,
		tap:     tap,
		cfg:     cfg,
		logger:  logger.With("component", "capture_encoder"),
		dropLog: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Process handles one capture block. It returns false once the session is
// inactive; the caller must then release the input device.
func (e *Encoder) Process(block []float32) bool {
	if !e.gate.Active() {
		return false
	}

	samples := pcm.Resample(pcm.FloatToInt16(block), e.cfg.SourceRate, e.cfg.TargetRate)
	frame := domain.AudioFrame{Samples: samples, SampleRate: e.cfg.TargetRate}

	if state := e.sink.State(); state != domain.ConnectionOpen {
		e.drop("transport not open", "state", state)
		return true
	}
	if err := e.sink.SendBinary(frame.Bytes()); err != nil {
		e.drop("send failed", "error", err)
		return true
	}
	e.sent.Add(1)

	if e.tap != nil {
		if err := e.tap.WriteFrame(frame); err != nil {
			e.logger.Warn("frame tap write failed", "error", err)
			e.tap = nil
		}
	}
	return true
}

// Sent returns the number of frames handed to the transport.
func (e *Encoder) Sent() int64 { return e.sent.Load() }

// Dropped returns the number of frames discarded.
func (e *Encoder) Dropped() int64 { return e.dropped.Load() }

func (e *Encoder) drop(reason string, args ...any) {
	total := e.dropped.Add(1)
	if e.dropLog.Allow() {
		e.logger.Warn("dropping audio frame: "+reason, append(args, "dropped_total", total)...)
	}
}

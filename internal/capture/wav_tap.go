package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"brainwave/internal/domain"
)

// WAVTap records sent frames into a mono 16-bit WAV file.
type WAVTap struct {
	mu     sync.Mutex
	file   *os.File
	enc    *wav.Encoder
	rate   int
	closed bool
}

// OpenWAVTap creates <dir>/<name>.wav for frames at sampleRate.
func OpenWAVTap(dir string, name string, sampleRate int) (*WAVTap, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tap dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, name+".wav"))
	if err != nil {
		return nil, fmt.Errorf("failed to create tap file: %w", err)
	}
	return &WAVTap{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, 16, 1, 1),
		rate: sampleRate,
	}, nil
}

func (t *WAVTap) WriteFrame(frame domain.AudioFrame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return os.ErrClosed
	}

	data := make([]int, len(frame.Samples))
	for i, s := range frame.Samples {
		data[i] = int(s)
	}
	return t.enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: t.rate},
		SourceBitDepth: 16,
	})
}

// Close finalizes the WAV header and closes the file.
func (t *WAVTap) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	encErr := t.enc.Close()
	if err := t.file.Close(); err != nil && encErr == nil {
		encErr = err
	}
	return encErr
}

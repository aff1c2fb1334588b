package usecase

import (
	"errors"
	"sync"
	"testing"

	"brainwave/internal/domain"
)

func TestPumpAudioBlocksReportsReadError(t *testing.T) {
	t.Parallel()

	session := &errorAudioSession{err: errors.New("read failed")}
	failures := &failureRecorder{}
	done := make(chan struct{})

	go pumpAudioBlocks(session, &countingProcessor{active: true}, 256, failures.record, done)
	<-done

	errs := failures.snapshot()
	if len(errs) != 1 || !errors.Is(errs[0], domain.ErrCaptureDevice) {
		t.Fatalf("expected capture device error, got %v", errs)
	}
	if session.stopCalls != 1 {
		t.Fatalf("expected device release after read error")
	}
}

func TestPumpAudioBlocksReleasesDeviceWhenInactive(t *testing.T) {
	t.Parallel()

	session := newFakeAudioSession()
	session.push(floatBlock(256, 0.1))
	processor := &countingProcessor{active: false}
	failures := &failureRecorder{}
	done := make(chan struct{})

	go pumpAudioBlocks(session, processor, 256, failures.record, done)
	<-done

	if session.stops() == 0 {
		t.Fatalf("expected device release")
	}
	if processor.calls != 1 {
		t.Fatalf("expected exactly one processed block, got %d", processor.calls)
	}
	if len(failures.snapshot()) != 0 {
		t.Fatalf("inactive session is not a failure")
	}
}

func TestPumpAudioBlocksProcessesShortTailThenReportsEnd(t *testing.T) {
	t.Parallel()

	session := newFakeAudioSession()
	session.push(floatBlock(256, 0.1))
	session.push(floatBlock(10, 0.1))
	session.end()
	processor := &countingProcessor{active: true}
	failures := &failureRecorder{}
	done := make(chan struct{})

	go pumpAudioBlocks(session, processor, 256, failures.record, done)
	<-done

	if processor.calls != 2 || processor.samples != 266 {
		t.Fatalf("expected full block and tail, got calls=%d samples=%d", processor.calls, processor.samples)
	}
	if errs := failures.snapshot(); len(errs) != 1 || !errors.Is(errs[0], domain.ErrCaptureDevice) {
		t.Fatalf("expected end of stream to be reported, got %v", errs)
	}
}

type countingProcessor struct {
	active  bool
	calls   int
	samples int
}

func (p *countingProcessor) Process(block []float32) bool {
	p.calls++
	p.samples += len(block)
	return p.active
}

type failureRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *failureRecorder) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *failureRecorder) snapshot() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

type errorAudioSession struct {
	err       error
	stopCalls int
}

func (s *errorAudioSession) Read(_ []byte) (int, error) { return 0, s.err }
func (s *errorAudioSession) Close() error               { return nil }
func (s *errorAudioSession) Stop() error {
	s.stopCalls++
	return nil
}

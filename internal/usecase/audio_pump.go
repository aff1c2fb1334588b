package usecase

import (
	"errors"
	"fmt"
	"io"

	"brainwave/internal/audio"
	"brainwave/internal/domain"
	"brainwave/internal/ports"
)

type blockProcessor interface {
	Process(block []float32) bool
}

// pumpAudioBlocks reads fixed-size float32 blocks and hands them to the
// encoder. The device is released as soon as the encoder reports an inactive
// session, on a read failure, or when the stream ends.
func pumpAudioBlocks(
	session ports.AudioSession,
	encoder blockProcessor,
	blockSize int,
	onFailure func(error),
	done chan struct{},
) {
	defer close(done)
	defer func() { _ = session.Stop() }()

	if blockSize < 256 {
		blockSize = 4096
	}

	buf := make([]byte, blockSize*4)
	for {
		block, err := audio.ReadBlock(session, buf)
		if len(block) > 0 && !encoder.Process(block) {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				onFailure(fmt.Errorf("%w: input stream ended", domain.ErrCaptureDevice))
			} else {
				onFailure(fmt.Errorf("%w: %v", domain.ErrCaptureDevice, err))
			}
			return
		}
	}
}

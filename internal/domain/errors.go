package domain

import "errors"

var (
	ErrCaptureDevice    = errors.New("capture device unavailable")
	ErrTransportConnect = errors.New("transport connection failed")
	ErrTransportClosed  = errors.New("transport closed")
	ErrNotOpen          = errors.New("transport is not open")
	ErrProtocol         = errors.New("malformed protocol message")
	ErrNoEligibleTarget = errors.New("no eligible injection target")
	ErrService          = errors.New("transcription service error")
)

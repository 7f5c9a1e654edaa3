package proctoring

import "errors"

var (
	ErrEngineUnavailable = errors.New("cv monitoring not available")
	ErrModelsNotLoaded   = errors.New("detection models not loaded")
	ErrSessionNotFound   = errors.New("monitoring not started for this interview")
	ErrSessionInactive   = errors.New("monitoring is not active")
	ErrDecodeFailed      = errors.New("failed to decode frame")
)

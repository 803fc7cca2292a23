package agent

import (
	"errors"

	"franz/internal/capture"
	"franz/internal/imaging"
	"franz/internal/inference"
	"franz/internal/input"
)

// Error kinds used in logs and metrics.
const (
	KindCapture   = "capture"
	KindEncode    = "encode"
	KindInference = "inference"
	KindInput     = "input"
	KindArchive   = "archive"
	KindUnknown   = "unknown"
)

// Classify maps a cycle error onto its kind.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, capture.ErrCapture):
		return KindCapture
	case errors.Is(err, imaging.ErrEncoding), errors.Is(err, imaging.ErrFrameSize):
		return KindEncode
	case errors.Is(err, inference.ErrInference):
		return KindInference
	case errors.Is(err, input.ErrInjection), errors.Is(err, input.ErrUnsupportedPlatform):
		return KindInput
	default:
		return KindUnknown
	}
}

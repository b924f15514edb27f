package model

import "errors"

// Symbol-scoped failures. A run skips the symbol and keeps going.
var (
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrTimeout          = errors.New("fetch timeout")
	ErrMalformed        = errors.New("malformed series")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerate       = errors.New("degenerate indicator values")
)

// ErrUniverseUnavailable aborts the whole run.
var ErrUniverseUnavailable = errors.New("symbol universe unavailable")

// SkipReason classifies why a symbol produced no evaluation.
type SkipReason string

const (
	SkipUnavailable  SkipReason = "UNAVAILABLE"
	SkipTimeout      SkipReason = "TIMEOUT"
	SkipMalformed    SkipReason = "MALFORMED"
	SkipInsufficient SkipReason = "INSUFFICIENT"
	SkipDegenerate   SkipReason = "DEGENERATE"
)

// ClassifySkip maps a symbol-level error to its skip reason.
func ClassifySkip(err error) SkipReason {
	switch {
	case errors.Is(err, ErrTimeout):
		return SkipTimeout
	case errors.Is(err, ErrMalformed):
		return SkipMalformed
	case errors.Is(err, ErrInsufficientData):
		return SkipInsufficient
	case errors.Is(err, ErrDegenerate):
		return SkipDegenerate
	default:
		return SkipUnavailable
	}
}

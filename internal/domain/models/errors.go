package models

import "errors"

var (
	// ErrInvalidWindow is returned for a malformed month/year before any sampling starts.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrMissingBirthInstant is returned when a profile carries no birth instant.
	ErrMissingBirthInstant = errors.New("missing birth instant")

	// ErrNoSamples is returned when no natal or no transiting body could be sampled.
	ErrNoSamples = errors.New("no bodies could be sampled")

	ErrUnknownBody   = errors.New("unknown body")
	ErrInvalidAspect = errors.New("invalid aspect definition")

	// ErrInvalidProfile covers unparseable birth data or time zones.
	ErrInvalidProfile = errors.New("invalid profile")
)

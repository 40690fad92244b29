package domain

import "errors"

var (
	// ErrNotFound means the conversation ID is unknown; maps to 404.
	ErrNotFound = errors.New("conversation not found")

	// ErrInvalidInput means the caller supplied an empty or malformed
	// message; maps to 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGenerationUnavailable means the generation backend was unreachable
	// or the model is missing, after retries were exhausted; maps to 503.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")

	// ErrExternalData marks weather/country/location lookup failures. It is
	// always contained by the orchestrator and never reaches the caller.
	ErrExternalData = errors.New("external data lookup failed")
)

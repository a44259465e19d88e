package device

import "errors"

var (
	// ErrConfiguration marks fatal configuration problems surfaced before
	// a session finishes constructing: missing identity template, missing
	// runtime endpoint, or a pool entry without an identifier.
	ErrConfiguration = errors.New("invalid session configuration")

	// ErrInitialization marks a failed runtime registration. The session
	// stays unstarted and unusable.
	ErrInitialization = errors.New("device runtime initialization failed")

	// ErrNotConnected is returned when Offload is invoked outside the
	// CONNECTED state. It signals a lifecycle bug in the driver, not a
	// platform failure.
	ErrNotConnected = errors.New("session not connected")
)

// Package source provides the snapshot sources the aircraft table can
// refresh from.
package source

import "errors"

var (
	// ErrUnreachable covers connectivity failures, timeouts and any non-200
	// response: the endpoint did not deliver a snapshot
	ErrUnreachable = errors.New("aircraft source unreachable")
	// ErrMalformed means the response was not a JSON array of aircraft
	ErrMalformed = errors.New("malformed aircraft response")
)

package audioserver

import "errors"

var (
	// ErrDisconnected means there is no active session to the audio server.
	// Callers surface it; the status poller re-acquires the session later.
	ErrDisconnected = errors.New("no active audio server session")
	// ErrUnknownPort means the server does not know the named port.
	ErrUnknownPort = errors.New("unknown port")
	// ErrAlreadyConnected means the requested edge already exists.
	ErrAlreadyConnected = errors.New("ports already connected")
	// ErrNotConnected means the requested edge does not exist.
	ErrNotConnected = errors.New("ports not connected")
)

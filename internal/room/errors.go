package room

import "errors"

// Classified errors surfaced to the user. None of them mutate state and
// none are fatal to the session.
var (
	// ErrRoomNotFound is returned when no room matches the given code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNameTaken is returned when the username is already present in
	// the target room.
	ErrNameTaken = errors.New("username is already taken in this room")

	// ErrCodeSpaceExhausted is returned when code generation failed to
	// find a free code after the bounded retries.
	ErrCodeSpaceExhausted = errors.New("could not generate an unused room code")
)

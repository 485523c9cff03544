package session

import "ephemeral-chat/internal/room"

// Session is one client's connection state. Sessions are explicit
// values keyed by ID, so a single process can host any number of
// concurrent clients.
type Session struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	RoomCode  string `json:"room_code"`
	Connected bool   `json:"connected"`
}

// Sink is the rendering collaborator for one session. The core never
// presents anything itself; it hands messages and error strings to the
// sink and otherwise stays out of presentation.
type Sink interface {
	// Display renders one message. isOwn is true when the session's own
	// user sent it.
	Display(msg room.Message, isOwn bool)

	// Clear resets the rendered view before a full history reload.
	Clear()

	// Error surfaces a validation or lookup failure.
	Error(text string)

	// RoomClosed tells the client its room is gone and the session has
	// returned to the disconnected state.
	RoomClosed(reason string)
}

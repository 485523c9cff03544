package room

import "time"

// Message types.
const (
	TypeUser   = "user"
	TypeSystem = "system"
)

// Message represents a single chat entry in a room. Messages are never
// mutated after creation; they only leave a room through the history cap
// or whole-room deletion.
type Message struct {
	// ID is the creation time in Unix milliseconds. It orders messages
	// for display and is not guaranteed unique under clock resolution.
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// Room represents an ephemeral chat room addressed by its code.
type Room struct {
	Code         string    `json:"code"`
	Messages     []Message `json:"messages"`
	Users        []string  `json:"users"`
	CreatedAt    int64     `json:"createdAt"`
	LastActivity int64     `json:"lastActivity"`
}

// HasUser reports whether username is currently present in the room.
func (r *Room) HasUser(username string) bool {
	for _, u := range r.Users {
		if u == username {
			return true
		}
	}
	return false
}

// RemoveUser removes username from the room's user list.
func (r *Room) RemoveUser(username string) {
	users := r.Users[:0]
	for _, u := range r.Users {
		if u != username {
			users = append(users, u)
		}
	}
	r.Users = users
}

// Touch updates the room's last-activity timestamp.
func (r *Room) Touch(now time.Time) {
	r.LastActivity = now.UnixMilli()
}

// NewMessage builds a user message with the given encoded content.
func NewMessage(username, content string, now time.Time) Message {
	return Message{
		ID:        now.UnixMilli(),
		Username:  username,
		Content:   content,
		Timestamp: now.Format("15:04:05"),
		Type:      TypeUser,
	}
}

// NewSystemMessage builds a system message. System notices carry plain
// content so peers can render them without knowing the codec.
func NewSystemMessage(content string, now time.Time) Message {
	return Message{
		ID:        now.UnixMilli(),
		Content:   content,
		Timestamp: now.Format("15:04:05"),
		Type:      TypeSystem,
	}
}

package chat

import (
	"context"
	"time"

	"ephemeral-chat/internal/codec"
	"ephemeral-chat/internal/room"
	"ephemeral-chat/internal/security"
)

// Relay appends messages and system notices to rooms and answers the
// change-detection question peers use to pick up new messages without a
// live connection.
type Relay struct {
	repo      room.Repository
	codec     codec.Codec
	validator *security.InputValidator
}

// NewRelay creates a message relay.
func NewRelay(repo room.Repository, c codec.Codec, validator *security.InputValidator) *Relay {
	return &Relay{
		repo:      repo,
		codec:     c,
		validator: validator,
	}
}

// Send validates, encodes, and appends a user message to the room,
// bumping its activity timestamp. Blank text is a silent no-op and
// returns a nil message.
func (r *Relay) Send(ctx context.Context, username, code, text string) (*room.Message, error) {
	text, err := r.validator.ValidateMessage(text)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	encoded, err := r.codec.Encode(text)
	if err != nil {
		return nil, err
	}

	target, exists, err := r.repo.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, room.ErrRoomNotFound
	}

	now := time.Now()
	msg := room.NewMessage(username, string(encoded), now)
	target.Messages = append(target.Messages, msg)
	target.Touch(now)

	if err := r.repo.Save(ctx, target); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SystemNotice appends a plain system message to the room. Notices skip
// the codec so peers can render them without any format negotiation.
func (r *Relay) SystemNotice(ctx context.Context, code, text string) error {
	target, exists, err := r.repo.Get(ctx, code)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	now := time.Now()
	target.Messages = append(target.Messages, room.NewSystemMessage(text, now))
	target.Touch(now)

	return r.repo.Save(ctx, target)
}

// Changed reports whether the room holds a different number of messages
// than the caller has rendered. The external change signal is advisory,
// so peers call this before refetching anything.
func (r *Relay) Changed(ctx context.Context, code string, renderedCount int) (bool, error) {
	target, exists, err := r.repo.Get(ctx, code)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	return len(target.Messages) != renderedCount, nil
}

// History returns the room's messages with user message bodies decoded
// for display. The second return value is false when the room no longer
// exists.
func (r *Relay) History(ctx context.Context, code string) ([]room.Message, bool, error) {
	target, exists, err := r.repo.Get(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	messages := make([]room.Message, len(target.Messages))
	for i, msg := range target.Messages {
		messages[i] = r.Decoded(msg)
	}
	return messages, true, nil
}

// Decoded returns a copy of msg with its content decoded. System
// notices are stored plain and pass through unchanged.
func (r *Relay) Decoded(msg room.Message) room.Message {
	if msg.Type != room.TypeUser {
		return msg
	}
	decoded, err := r.codec.Decode([]byte(msg.Content))
	if err != nil {
		return msg
	}
	msg.Content = decoded
	return msg
}

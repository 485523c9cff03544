package room

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"ephemeral-chat/internal/security"
)

// codeCharset is the alphabet for generated room codes.
const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// createRetries bounds the existence check during code generation. The
// code space is 36^6, so more than one retry is already unlikely.
const createRetries = 5

// ServiceOptions holds the lifecycle timings and limits.
type ServiceOptions struct {
	CodeLength        int
	InactivityTimeout time.Duration
	EmptyRoomGrace    time.Duration
	SweepInterval     time.Duration
}

// Service implements the room lifecycle: admission, membership changes,
// and the expiry mechanisms.
type Service struct {
	repo      Repository
	validator *security.InputValidator
	opts      ServiceOptions
}

// NewService creates a room lifecycle service.
func NewService(repo Repository, validator *security.InputValidator, opts ServiceOptions) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		opts:      opts,
	}
}

// Create validates the username, generates an unused room code, and
// persists a new room with the creator as its only user.
func (s *Service) Create(ctx context.Context, username string) (*Room, error) {
	username, err := s.validator.ValidateUsername(username)
	if err != nil {
		return nil, err
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	room := &Room{
		Code:         code,
		Messages:     []Message{},
		Users:        []string{username},
		CreatedAt:    now.UnixMilli(),
		LastActivity: now.UnixMilli(),
	}

	if err := s.repo.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Join validates the username, normalizes the room code, and adds the
// user to the room. The username must be unique within the room.
func (s *Service) Join(ctx context.Context, username, code string) (*Room, error) {
	username, err := s.validator.ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	code, err = s.validator.NormalizeRoomCode(code)
	if err != nil {
		return nil, err
	}

	room, exists, err := s.repo.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}
	if room.HasUser(username) {
		return nil, ErrNameTaken
	}

	room.Users = append(room.Users, username)
	room.Touch(time.Now())

	if err := s.repo.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Leave removes the user from the room, records a system notice, and
// arms the empty-room grace timer when the last user leaves. Leaving a
// room that no longer exists is a no-op.
func (s *Service) Leave(ctx context.Context, username, code string) error {
	room, exists, err := s.repo.Get(ctx, code)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	now := time.Now()
	room.Messages = append(room.Messages, NewSystemMessage(fmt.Sprintf("%s left the room", username), now))
	room.RemoveUser(username)
	room.Touch(now)

	if err := s.repo.Save(ctx, room); err != nil {
		return err
	}

	if len(room.Users) == 0 {
		s.armEmptyRoomTimer(code)
	}
	return nil
}

// armEmptyRoomTimer schedules deletion of an empty room after the grace
// period. The timer is never cancelled: a rejoin repopulates the room
// and the callback re-reads it and does nothing. Every leave that
// empties the room arms a fresh timer.
func (s *Service) armEmptyRoomTimer(code string) {
	time.AfterFunc(s.opts.EmptyRoomGrace, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		room, exists, err := s.repo.Get(ctx, code)
		if err != nil || !exists || len(room.Users) > 0 {
			return
		}
		if err := s.repo.Delete(ctx, code); err != nil {
			log.Printf("⚠️ Failed to delete empty room %s: %v", code, err)
			return
		}
		log.Printf("🗑️ Deleted empty room %s after grace period", code)
	})
}

// Delete removes a room outright. Used by the inactivity expiry after
// its notice delay; deleting an already-deleted room is a no-op.
func (s *Service) Delete(ctx context.Context, code string) error {
	return s.repo.Delete(ctx, code)
}

// Refresh bumps the room's activity timestamp without any other
// change, keeping it alive past the expiry checks.
func (s *Service) Refresh(ctx context.Context, code string) error {
	room, exists, err := s.repo.Get(ctx, code)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}
	room.Touch(time.Now())
	return s.repo.Save(ctx, room)
}

// Sweep scans the room table and deletes expired rooms: any room idle
// past the inactivity timeout regardless of occupancy, and any empty
// room idle past the grace period.
func (s *Service) Sweep(ctx context.Context) error {
	rooms, err := s.repo.All(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for code, room := range rooms {
		idle := now.Sub(time.UnixMilli(room.LastActivity))

		switch {
		case idle > s.opts.InactivityTimeout:
			if err := s.repo.Delete(ctx, code); err != nil {
				log.Printf("⚠️ Sweep failed to delete room %s: %v", code, err)
				continue
			}
			log.Printf("🗑️ Swept inactive room %s (idle %v)", code, idle.Round(time.Second))
		case len(room.Users) == 0 && idle > s.opts.EmptyRoomGrace:
			if err := s.repo.Delete(ctx, code); err != nil {
				log.Printf("⚠️ Sweep failed to delete room %s: %v", code, err)
				continue
			}
			log.Printf("🗑️ Swept empty room %s (idle %v)", code, idle.Round(time.Second))
		}
	}
	return nil
}

// StartSweeper runs Sweep on the configured interval until ctx is
// cancelled. It is safe to run alongside the per-session timers; both
// end up calling the idempotent Delete.
func (s *Service) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.opts.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					log.Printf("⚠️ Room sweep failed: %v", err)
				}
			}
		}
	}()
}

// InactivityTimeout returns the configured room inactivity timeout.
func (s *Service) InactivityTimeout() time.Duration {
	return s.opts.InactivityTimeout
}

// generateCode picks an unused room code, retrying a bounded number of
// times. The original overwrote an existing room on collision; checking
// first costs one read and removes that failure mode.
func (s *Service) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < createRetries; attempt++ {
		code := randomCode(s.opts.CodeLength)

		_, exists, err := s.repo.Get(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// randomCode generates a random code of the given length.
func randomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(b)
}

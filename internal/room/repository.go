package room

import (
	"context"
	"encoding/json"
	"log"

	"ephemeral-chat/internal/store"
)

// Repository manages room data
type Repository interface {
	Get(ctx context.Context, code string) (*Room, bool, error)
	Save(ctx context.Context, room *Room) error
	Delete(ctx context.Context, code string) error
	All(ctx context.Context) (map[string]*Room, error)
}

// StoreRepository implements Repository on top of a shared Store. It
// exclusively owns the serialized form of the room table: every
// operation reads the whole table, modifies its entry, and writes the
// whole table back, so concurrent writers are last-writer-wins.
type StoreRepository struct {
	store       store.Store
	maxMessages int
}

// NewStoreRepository creates a repository over the given store.
// maxMessages is the per-room history cap enforced on every save.
func NewStoreRepository(st store.Store, maxMessages int) *StoreRepository {
	return &StoreRepository{
		store:       st,
		maxMessages: maxMessages,
	}
}

// Get returns the room with the given code, if present.
func (r *StoreRepository) Get(ctx context.Context, code string) (*Room, bool, error) {
	rooms, err := r.readTable(ctx)
	if err != nil {
		return nil, false, err
	}
	room, exists := rooms[code]
	return room, exists, nil
}

// Save upserts the room, enforcing the history cap before writing. The
// oldest messages are dropped first.
func (r *StoreRepository) Save(ctx context.Context, room *Room) error {
	rooms, err := r.readTable(ctx)
	if err != nil {
		return err
	}

	if len(room.Messages) > r.maxMessages {
		room.Messages = room.Messages[len(room.Messages)-r.maxMessages:]
	}

	rooms[room.Code] = room
	return r.writeTable(ctx, rooms)
}

// Delete removes the room. Deleting an absent room is not an error, so
// the expiry timers and the sweeper can race on the same room safely.
func (r *StoreRepository) Delete(ctx context.Context, code string) error {
	rooms, err := r.readTable(ctx)
	if err != nil {
		return err
	}
	if _, exists := rooms[code]; !exists {
		return nil
	}
	delete(rooms, code)
	return r.writeTable(ctx, rooms)
}

// All returns the full room table.
func (r *StoreRepository) All(ctx context.Context) (map[string]*Room, error) {
	return r.readTable(ctx)
}

// readTable loads and parses the room table. An unparsable table is
// treated as empty rather than failing the operation; the next write
// replaces it.
func (r *StoreRepository) readTable(ctx context.Context) (map[string]*Room, error) {
	data, exists, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return make(map[string]*Room), nil
	}

	rooms := make(map[string]*Room)
	if err := json.Unmarshal(data, &rooms); err != nil {
		log.Printf("⚠️ Room table is corrupted, starting from empty: %v", err)
		return make(map[string]*Room), nil
	}
	return rooms, nil
}

// writeTable serializes and stores the full room table.
func (r *StoreRepository) writeTable(ctx context.Context, rooms map[string]*Room) error {
	data, err := json.Marshal(rooms)
	if err != nil {
		return err
	}
	return r.store.Save(ctx, data)
}

package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ephemeral-chat/internal/chat"
	"ephemeral-chat/internal/room"
	"ephemeral-chat/internal/store"
)

// Options holds the controller's per-session timings.
type Options struct {
	// InactivityTimeout is how long a session's room may sit without
	// activity before it is deleted.
	InactivityTimeout time.Duration

	// DeletionNoticeDelay is the gap between the inactivity notice and
	// the actual deletion, so peers get a chance to observe the notice.
	DeletionNoticeDelay time.Duration

	// PollInterval is how often a connected session re-checks the store
	// for peer messages, independent of change signals.
	PollInterval time.Duration
}

// state is the controller-internal record for one session.
type state struct {
	session     Session
	sink        Sink
	rendered    int
	inactivity  *time.Timer
	signal      chan struct{}
	stop        chan struct{}
	unsubscribe func()
}

// Controller ties (username, room code) pairs to active sessions and
// drives the room lifecycle and message relay on user actions and
// external signals. All session mutation runs under one mutex, so each
// client observes a single cooperative timeline.
type Controller struct {
	lifecycle *room.Service
	relay     *chat.Relay
	store     store.Store
	opts      Options

	mutex    sync.Mutex
	sessions map[string]*state
}

// NewController creates a session controller.
func NewController(lifecycle *room.Service, relay *chat.Relay, st store.Store, opts Options) *Controller {
	return &Controller{
		lifecycle: lifecycle,
		relay:     relay,
		store:     st,
		opts:      opts,
		sessions:  make(map[string]*state),
	}
}

// Open registers a new disconnected session backed by the given sink
// and returns its ID.
func (c *Controller) Open(sink Sink) string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	id := uuid.NewString()
	c.sessions[id] = &state{
		session: Session{ID: id},
		sink:    sink,
	}
	return id
}

// Close leaves the session's room if needed and removes the session.
// Callers invoke it when the client connection goes away for good.
func (c *Controller) Close(ctx context.Context, id string) {
	c.LeaveRoom(ctx, id)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.sessions, id)
}

// Get returns a copy of the session's current state.
func (c *Controller) Get(id string) (Session, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists {
		return Session{}, false
	}
	return st.session, true
}

// CreateRoom creates a new room with the session's user as its only
// occupant and connects the session to it.
func (c *Controller) CreateRoom(ctx context.Context, id, username string) (*room.Room, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists {
		return nil, fmt.Errorf("unknown session %s", id)
	}

	created, err := c.lifecycle.Create(ctx, username)
	if err != nil {
		st.sink.Error(err.Error())
		return nil, err
	}

	c.enterRoom(ctx, st, strings.TrimSpace(username), created.Code)
	return created, nil
}

// JoinRoom adds the session's user to an existing room and connects the
// session to it.
func (c *Controller) JoinRoom(ctx context.Context, id, username, code string) (*room.Room, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists {
		return nil, fmt.Errorf("unknown session %s", id)
	}

	joined, err := c.lifecycle.Join(ctx, username, code)
	if err != nil {
		st.sink.Error(err.Error())
		return nil, err
	}

	c.enterRoom(ctx, st, strings.TrimSpace(username), joined.Code)
	return joined, nil
}

// Enter routes the single entry affordance: join when a room code was
// supplied, create otherwise.
func (c *Controller) Enter(ctx context.Context, id, username, code string) (*room.Room, error) {
	if strings.TrimSpace(code) != "" {
		return c.JoinRoom(ctx, id, username, code)
	}
	return c.CreateRoom(ctx, id, username)
}

// SendMessage appends a user message to the session's room. Blank text
// or a disconnected session is a silent no-op. A successful send counts
// as activity and restarts the inactivity countdown.
func (c *Controller) SendMessage(ctx context.Context, id, text string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists || !st.session.Connected {
		return nil
	}

	msg, err := c.relay.Send(ctx, st.session.Username, st.session.RoomCode, text)
	if err != nil {
		st.sink.Error(err.Error())
		return err
	}
	if msg == nil {
		return nil
	}

	st.sink.Display(c.relay.Decoded(*msg), true)
	st.rendered++
	c.restartInactivityTimer(st)
	return nil
}

// LeaveRoom removes the session's user from its room and resets the
// session. Safe to call on a disconnected session.
func (c *Controller) LeaveRoom(ctx context.Context, id string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists || !st.session.Connected {
		return
	}

	if err := c.lifecycle.Leave(ctx, st.session.Username, st.session.RoomCode); err != nil {
		log.Printf("⚠️ Failed to leave room %s: %v", st.session.RoomCode, err)
	}
	c.reset(st)
}

// HandleTermination is the client's about-to-terminate hook. It leaves
// the room synchronously before the client goes away.
func (c *Controller) HandleTermination(ctx context.Context, id string) {
	c.LeaveRoom(ctx, id)
}

// HandleHidden is the client's became-inactive hook. It behaves like
// termination: the user leaves the room.
func (c *Controller) HandleHidden(ctx context.Context, id string) {
	c.LeaveRoom(ctx, id)
}

// RefreshActivity bumps the room's activity timestamp and restarts the
// session's inactivity countdown.
func (c *Controller) RefreshActivity(ctx context.Context, id string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists || !st.session.Connected {
		return nil
	}

	if err := c.lifecycle.Refresh(ctx, st.session.RoomCode); err != nil {
		return err
	}
	c.restartInactivityTimer(st)
	return nil
}

// enterRoom transitions a session to Connected(room); callers hold the
// mutex. It records the join notice, renders history, arms the
// inactivity countdown, and starts observing the store.
func (c *Controller) enterRoom(ctx context.Context, st *state, username, code string) {
	st.session.Username = username
	st.session.RoomCode = code
	st.session.Connected = true

	if err := c.relay.SystemNotice(ctx, code, fmt.Sprintf("%s joined the room", username)); err != nil {
		log.Printf("⚠️ Failed to record join notice for %s: %v", code, err)
	}

	st.sink.Clear()
	st.rendered = 0
	c.renderHistory(ctx, st)

	c.restartInactivityTimer(st)

	st.signal = make(chan struct{}, 1)
	st.stop = make(chan struct{})
	st.unsubscribe = c.store.Subscribe(func() {
		select {
		case st.signal <- struct{}{}:
		default:
		}
	})
	go c.observe(st.session.ID, st.signal, st.stop)
}

// reset returns a session to the disconnected state and clears all of
// its pending timers and observers; callers hold the mutex.
func (c *Controller) reset(st *state) {
	if st.inactivity != nil {
		st.inactivity.Stop()
		st.inactivity = nil
	}
	if st.unsubscribe != nil {
		st.unsubscribe()
		st.unsubscribe = nil
	}
	if st.stop != nil {
		close(st.stop)
		st.stop = nil
	}

	st.session.Username = ""
	st.session.RoomCode = ""
	st.session.Connected = false
	st.rendered = 0
	st.sink.Clear()
}

// restartInactivityTimer arms the session's inactivity countdown,
// stopping any previous one first so a session never has two armed;
// callers hold the mutex.
func (c *Controller) restartInactivityTimer(st *state) {
	if st.inactivity != nil {
		st.inactivity.Stop()
	}
	id := st.session.ID
	code := st.session.RoomCode
	st.inactivity = time.AfterFunc(c.opts.InactivityTimeout, func() {
		c.inactivityExpired(id, code)
	})
}

// inactivityExpired runs when a session's room has been idle for the
// full timeout: a plain notice first, then deletion after the notice
// delay so peers can observe it. The room code is pinned at arm time so
// a session that left and rejoined elsewhere is never affected by a
// stale timer.
func (c *Controller) inactivityExpired(id, code string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists || !st.session.Connected || st.session.RoomCode != code {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.relay.SystemNotice(ctx, code, "Room deleted due to inactivity"); err != nil {
		log.Printf("⚠️ Failed to record inactivity notice for %s: %v", code, err)
	}

	time.AfterFunc(c.opts.DeletionNoticeDelay, func() {
		c.mutex.Lock()
		defer c.mutex.Unlock()

		st, exists := c.sessions[id]
		if !exists || !st.session.Connected || st.session.RoomCode != code {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := c.lifecycle.Delete(ctx, code); err != nil {
			log.Printf("⚠️ Failed to delete inactive room %s: %v", code, err)
		}
		c.reset(st)
		st.sink.RoomClosed("Room deleted due to inactivity")
	})
}

// observe is the per-session observer loop: it reconciles on store
// change signals and on the periodic poll tick, and exits when the
// session leaves its room.
func (c *Controller) observe(id string, signal <-chan struct{}, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-signal:
			c.reconcile(id)
		case <-ticker.C:
			c.reconcile(id)
		}
	}
}

// reconcile re-derives whether the session's own room changed. The
// change signal is never trusted: the stored message count is compared
// against what this session has rendered, and only a mismatch triggers
// a full history reload. A vanished room means a peer's expiry deleted
// it, and the session falls back to disconnected.
func (c *Controller) reconcile(id string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	st, exists := c.sessions[id]
	if !exists || !st.session.Connected {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, roomExists, err := c.relay.History(ctx, st.session.RoomCode)
	if err != nil {
		log.Printf("⚠️ Failed to check room %s: %v", st.session.RoomCode, err)
		return
	}
	if !roomExists {
		c.reset(st)
		st.sink.RoomClosed("Room no longer exists")
		return
	}

	changed, err := c.relay.Changed(ctx, st.session.RoomCode, st.rendered)
	if err != nil || !changed {
		return
	}

	st.sink.Clear()
	st.rendered = 0
	c.renderHistory(ctx, st)
}

// renderHistory pushes the room's full decoded history to the sink;
// callers hold the mutex.
func (c *Controller) renderHistory(ctx context.Context, st *state) {
	messages, exists, err := c.relay.History(ctx, st.session.RoomCode)
	if err != nil || !exists {
		return
	}
	for _, msg := range messages {
		isOwn := msg.Type == room.TypeUser && msg.Username == st.session.Username
		st.sink.Display(msg, isOwn)
	}
	st.rendered = len(messages)
}

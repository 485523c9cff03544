package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"ephemeral-chat/internal/chat"
	"ephemeral-chat/internal/codec"
	"ephemeral-chat/internal/config"
	"ephemeral-chat/internal/room"
	"ephemeral-chat/internal/security"
	"ephemeral-chat/internal/session"
	"ephemeral-chat/internal/store"
)

// Command is a client request over the WebSocket.
type Command struct {
	Action   string `json:"action"` // create | join | enter | send | leave | refresh
	Username string `json:"username,omitempty"`
	Code     string `json:"code,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Event is a server push to the client.
type Event struct {
	Event   string        `json:"event"` // message | clear | error | joined | room_closed
	Message *room.Message `json:"message,omitempty"`
	Own     bool          `json:"own,omitempty"`
	Code    string        `json:"code,omitempty"`
	Users   []string      `json:"users,omitempty"`
	Text    string        `json:"text,omitempty"`
}

// wsSink renders session output onto a WebSocket connection.
type wsSink struct {
	send chan []byte
}

func (s *wsSink) push(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case s.send <- data:
	default:
		// Slow client; the next full reload catches it up.
	}
}

func (s *wsSink) Display(msg room.Message, isOwn bool) {
	s.push(Event{Event: "message", Message: &msg, Own: isOwn})
}

func (s *wsSink) Clear() {
	s.push(Event{Event: "clear"})
}

func (s *wsSink) Error(text string) {
	s.push(Event{Event: "error", Text: text})
}

func (s *wsSink) RoomClosed(reason string) {
	s.push(Event{Event: "room_closed", Text: reason})
}

// WebSocket upgrader for upgrading HTTP connections
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow every origin (development setup)
		return true
	},
}

// server holds the wired core.
type server struct {
	controller *session.Controller
}

// handleWebSocket manages one client: one socket, one session.
func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	sink := &wsSink{send: make(chan []byte, 256)}
	sessionID := s.controller.Open(sink)
	clientAddr := conn.RemoteAddr().String()
	log.Printf("🔗 New client: %s (session: %s)", clientAddr, sessionID)

	go s.handleRead(conn, sessionID, sink, clientAddr)
	go handleWrite(conn, sink.send, clientAddr)
}

// handleRead reads commands from the client and drives the controller.
func (s *server) handleRead(conn *websocket.Conn, sessionID string, sink *wsSink, clientAddr string) {
	defer func() {
		// Socket gone is the about-to-terminate signal: leave the room
		// before tearing the session down.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s.controller.HandleTermination(ctx, sessionID)
		s.controller.Close(ctx, sessionID)
		cancel()
		conn.Close()
		close(sink.send)
		log.Printf("🔌 Client disconnected: %s (session: %s)", clientAddr, sessionID)
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket error from %s: %v", clientAddr, err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			sink.Error("invalid command")
			continue
		}

		s.dispatch(sessionID, sink, cmd)
	}
}

// dispatch runs one client command against the controller.
func (s *server) dispatch(sessionID string, sink *wsSink, cmd Command) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cmd.Action {
	case "create":
		if created, err := s.controller.CreateRoom(ctx, sessionID, cmd.Username); err == nil {
			sink.push(Event{Event: "joined", Code: created.Code, Users: created.Users})
		}
	case "join":
		if joined, err := s.controller.JoinRoom(ctx, sessionID, cmd.Username, cmd.Code); err == nil {
			sink.push(Event{Event: "joined", Code: joined.Code, Users: joined.Users})
		}
	case "enter":
		if entered, err := s.controller.Enter(ctx, sessionID, cmd.Username, cmd.Code); err == nil {
			sink.push(Event{Event: "joined", Code: entered.Code, Users: entered.Users})
		}
	case "send":
		s.controller.SendMessage(ctx, sessionID, cmd.Text)
	case "leave":
		s.controller.LeaveRoom(ctx, sessionID)
	case "refresh":
		s.controller.RefreshActivity(ctx, sessionID)
	default:
		sink.Error(fmt.Sprintf("unknown action: %s", cmd.Action))
	}
}

// handleWrite pumps events to the client with ping keepalive.
func handleWrite(conn *websocket.Conn, send <-chan []byte, clientAddr string) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("❌ Failed to send to %s: %v", clientAddr, err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("❌ Failed to ping %s: %v", clientAddr, err)
				return
			}
		}
	}
}

// newStore builds the configured store backend.
func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.FilePath, cfg.FilePollInterval), nil
	case "mongo":
		mongoCfg := store.DefaultMongoConfig()
		mongoCfg.URI = cfg.MongoURI
		mongoCfg.Database = cfg.MongoDatabase
		return store.NewMongoStore(mongoCfg)
	case "redis":
		redisCfg := store.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		return store.NewRedisStore(redisCfg)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize store:", err)
	}
	defer st.Close()

	validator := security.NewInputValidator(cfg.MinUsernameLength, cfg.MaxUsernameLength, cfg.MaxMessageLength, cfg.RoomCodeLength)
	repo := room.NewStoreRepository(st, cfg.MaxMessages)
	lifecycle := room.NewService(repo, validator, room.ServiceOptions{
		CodeLength:        cfg.RoomCodeLength,
		InactivityTimeout: cfg.InactivityTimeout,
		EmptyRoomGrace:    cfg.EmptyRoomGrace,
		SweepInterval:     cfg.SweepInterval,
	})
	relay := chat.NewRelay(repo, codec.NewBase64Codec(), validator)
	controller := session.NewController(lifecycle, relay, st, session.Options{
		InactivityTimeout:   cfg.InactivityTimeout,
		DeletionNoticeDelay: cfg.DeletionNoticeDelay,
		PollInterval:        cfg.PeerPollInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lifecycle.StartSweeper(ctx)

	srv := &server{controller: controller}
	http.HandleFunc("/ws", srv.handleWebSocket)
	http.Handle("/", http.FileServer(http.Dir("./static/")))

	log.Printf("🚀 Starting chat server on %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Port)
	log.Printf("💾 Store backend: %s", cfg.StoreBackend)

	if err := http.ListenAndServe(cfg.Port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

// ABOUTME: Websocket remote control for a running stream
// ABOUTME: Accepts volume, mute, speed and update commands and pushes stats to clients
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/emustream/internal/version"
	"github.com/harperreed/emustream/pkg/stream"
)

// Path is the websocket endpoint
const Path = "/emustream"

// Controller is the stream surface the remote drives
type Controller interface {
	SetVolume(level int)
	Clear(mute bool)
	Update()
	Stats() stream.Stats
}

// Host is the optional emulated host surface
type Host interface {
	SetSpeed(speed float64)
	Speed() float64
	Buffered() int
	Dropped() uint64
}

// Config holds remote server configuration
type Config struct {
	Addr          string
	Name          string
	Advertise     bool
	StatsInterval time.Duration
}

// Server serves the control websocket
type Server struct {
	config   Config
	serverID string
	ctrl     Controller
	host     Host
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clients   map[*client]struct{}
	clientsMu sync.RWMutex
	wg        sync.WaitGroup
}

type client struct {
	conn     *websocket.Conn
	addr     string
	sendChan chan interface{}
}

// New creates a remote server. host may be nil.
func New(config Config, ctrl Controller, host Host) *Server {
	if config.StatsInterval <= 0 {
		config.StatsInterval = 500 * time.Millisecond
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		ctrl:     ctrl,
		host:     host,
		upgrader: websocket.Upgrader{
			// Control clients are local tools, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux:     http.NewServeMux(),
		clients: make(map[*client]struct{}),
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the websocket endpoint
func (s *Server) Handler() http.Handler { return s.mux }

// Run listens on the configured address until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	httpServer := &http.Server{Handler: s.mux}
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	log.Printf("Remote control listening on %s%s", ln.Addr(), Path)

	if s.config.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := Advertise(s.config.Name, port)
		if err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			defer adv.Shutdown()
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.statsLoop(ctx)
	}()

	var serverErr error
	select {
	case <-ctx.Done():
	case serverErr = <-errChan:
		log.Printf("Remote server error: %v", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Remote server shutdown error: %v", err)
	}

	s.closeClients()
	s.wg.Wait()

	if serverErr != nil {
		return fmt.Errorf("remote server failed: %w", serverErr)
	}
	return nil
}

// statsLoop pushes stats to every client until ctx is done
func (s *Server) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcastStats()
		}
	}
}

func (s *Server) broadcastStats() {
	msg := Message{Type: "stats", Payload: s.stats()}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		if err := c.send(msg); err != nil {
			log.Printf("Dropping stats for %s: %v", c.addr, err)
		}
	}
}

func (s *Server) stats() StatsMessage {
	msg := newStatsMessage(s.ctrl.Stats())
	if s.host != nil {
		msg.Speed = s.host.Speed()
		msg.Buffered = s.host.Buffered()
		msg.Dropped = s.host.Dropped()
	}
	return msg
}

// Clients returns the number of connected clients
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for c := range s.clients {
		c.conn.Close()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("Remote client connected from %s", r.RemoteAddr)
	s.handleConnection(conn, r.RemoteAddr)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn, addr string) {
	defer conn.Close()

	c := &client{conn: conn, addr: addr, sendChan: make(chan interface{}, 32)}

	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		close(c.sendChan)
		s.clientsMu.Unlock()
		log.Printf("Remote client disconnected: %s", addr)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writer()
	}()

	hello := Hello{
		ServerID:     s.serverID,
		Name:         s.config.Name,
		Version:      ProtocolVersion,
		Software:     version.Product + " " + version.Version,
		Manufacturer: version.Manufacturer,
	}
	if err := c.send(Message{Type: "hello", Payload: hello}); err != nil {
		log.Printf("Error sending hello: %v", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handleMessage(c, data)
	}
}

// handleMessage applies one client command
func (s *Server) handleMessage(c *client, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reject(c, "bad_message", err.Error())
		return
	}

	switch msg.Type {
	case "volume":
		var cmd VolumeCommand
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			s.reject(c, "bad_payload", err.Error())
			return
		}
		if cmd.Volume < 0 || cmd.Volume > 100 {
			s.reject(c, "bad_volume", "volume must be 0-100, got "+strconv.Itoa(cmd.Volume))
			return
		}
		s.ctrl.SetVolume(cmd.Volume)
		log.Printf("Remote %s set volume %d", c.addr, cmd.Volume)

	case "mute":
		var cmd MuteCommand
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			s.reject(c, "bad_payload", err.Error())
			return
		}
		s.ctrl.Clear(cmd.Muted)
		log.Printf("Remote %s set muted=%v", c.addr, cmd.Muted)

	case "speed":
		var cmd SpeedCommand
		if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
			s.reject(c, "bad_payload", err.Error())
			return
		}
		if s.host == nil || cmd.Speed <= 0 {
			s.reject(c, "bad_speed", "speed control unavailable or not positive")
			return
		}
		s.host.SetSpeed(cmd.Speed)

	case "update":
		s.ctrl.Update()

	case "stats":
		if err := c.send(Message{Type: "stats", Payload: s.stats()}); err != nil {
			log.Printf("Error sending stats: %v", err)
		}

	default:
		s.reject(c, "unknown_type", "unknown message type: "+msg.Type)
	}
}

func (s *Server) reject(c *client, code, message string) {
	log.Printf("Rejecting message from %s: %s", c.addr, message)
	if err := c.send(Message{Type: "error", Payload: ErrorMessage{Error: code, Message: message}}); err != nil {
		log.Printf("Error sending error: %v", err)
	}
}

// send queues a message for the writer goroutine
func (c *client) send(msg interface{}) error {
	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// writer sends queued messages and keepalive pings
func (c *client) writer() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing text message: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection is one subscribed WebSocket client, scoped to a single lab.
type Connection struct {
	ID    string
	LabID string
	conn  *websocket.Conn
	send  chan Frame
	done  chan struct{}
}

// ConnectionManager fans Frames for a lab out to every Connection
// subscribed to it, ported from the teacher's pkg/events/manager.go.
type ConnectionManager struct {
	mu          sync.RWMutex
	byLab       map[string]map[string]*Connection
	listener    *NotifyListener
}

// NewConnectionManager constructs an empty manager. SetListener wires it
// to a NotifyListener for cross-process delivery once Start has been
// called.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{byLab: make(map[string]map[string]*Connection)}
}

// SetListener attaches the NotifyListener this manager forwards incoming
// NOTIFY payloads from onto local connections.
func (m *ConnectionManager) SetListener(l *NotifyListener) {
	m.listener = l
	l.handlers[notifyHandlerKey] = m.handleNotification
}

const notifyHandlerKey = "connection_manager"

// Register adds conn to the subscriber set for labID.
func (m *ConnectionManager) Register(labID string, conn *websocket.Conn) *Connection {
	c := &Connection{
		ID:    uuid.NewString(),
		LabID: labID,
		conn:  conn,
		send:  make(chan Frame, 64),
		done:  make(chan struct{}),
	}

	m.mu.Lock()
	if m.byLab[labID] == nil {
		m.byLab[labID] = make(map[string]*Connection)
	}
	m.byLab[labID][c.ID] = c
	m.mu.Unlock()

	if m.listener != nil {
		if err := m.listener.Subscribe(ChannelForLab(labID)); err != nil {
			slog.Warn("events: subscribe failed", "lab_id", labID, "error", err)
		}
	}

	return c
}

// Unregister removes a connection from its lab's subscriber set.
func (m *ConnectionManager) Unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conns, ok := m.byLab[c.LabID]; ok {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(m.byLab, c.LabID)
		}
	}
	close(c.done)
}

// PublishLocal delivers frame to every locally-registered connection for
// labID, without touching the cross-process bus. Publish errors never
// block the producer: a full send channel just drops the frame for that
// one slow connection and logs at warn level (spec §4.3).
func (m *ConnectionManager) PublishLocal(labID string, frame Frame) {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.byLab[labID]))
	for _, c := range m.byLab[labID] {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- frame:
		default:
			slog.Warn("events: dropping frame for slow connection", "lab_id", labID, "conn_id", c.ID)
		}
	}
}

func (m *ConnectionManager) handleNotification(channel string, payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		slog.Warn("events: malformed notify payload", "channel", channel, "error", err)
		return
	}
	labID := labIDFromChannel(channel)
	m.PublishLocal(labID, frame)
}

func labIDFromChannel(channel string) string {
	const prefix = "lab_state:"
	if len(channel) > len(prefix) {
		return channel[len(prefix):]
	}
	return ""
}

// HandleConnection runs conn's read/write pump until ctx is cancelled or
// the socket closes; callers run this in its own goroutine per connection.
func (m *ConnectionManager) HandleConnection(ctx context.Context, c *Connection, onMessage func(msgType int, data []byte)) {
	defer m.Unregister(c)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case frame := <-c.send:
				if err := c.conn.WriteJSON(frame); err != nil {
					return
				}
			}
		}
	}()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if onMessage != nil {
			onMessage(msgType, data)
		}
	}
}

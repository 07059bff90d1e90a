// Package wsgateway implements the two WebSocket surfaces named in spec
// §6: the lab state stream (ping/pong, refresh, idle heartbeat) and the
// bidirectional console byte proxy to an owning agent, both layered over
// gorilla/websocket and the events.ConnectionManager Broadcaster.
package wsgateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/netlab-io/controller/internal/events"
	"github.com/netlab-io/controller/internal/persistence"
)

const (
	idleHeartbeat = 30 * time.Second
	closeTimeout  = 1011 // abnormal closure code used on a silent socket
)

// upgrader has permissive origin checking; a real deployment restricts
// this to the dashboard's own origin at the reverse proxy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientMessage is the shape of inbound control messages on the state
// stream (spec §6: {type:"ping"} and {type:"refresh"}).
type clientMessage struct {
	Type string `json:"type"`
}

// Gateway wires HTTP upgrade requests to ConnectionManager subscriptions.
type Gateway struct {
	manager *events.ConnectionManager
	store   *persistence.Store
}

// New constructs a Gateway.
func New(manager *events.ConnectionManager, store *persistence.Store) *Gateway {
	return &Gateway{manager: manager, store: store}
}

// ServeLabState upgrades the request and runs the lab-state stream until
// the client disconnects or ctx is cancelled: initial_state/initial_links
// are sent immediately, {type:"ping"} is answered with pong, {type:
// "refresh"} resends initial state, and idleHeartbeat of silence produces
// a heartbeat frame (spec §6).
func (g *Gateway) ServeLabState(w http.ResponseWriter, r *http.Request, labID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("wsgateway: upgrade failed", "lab_id", labID, "error", err)
		return
	}

	ctx := r.Context()
	c := g.manager.Register(labID, conn)

	g.sendInitialState(ctx, labID, conn)

	idle := time.NewTimer(idleHeartbeat)
	defer idle.Stop()
	go g.idleHeartbeatLoop(ctx, c, conn, idle)

	g.manager.HandleConnection(ctx, c, func(msgType int, data []byte) {
		idle.Reset(idleHeartbeat)
		g.handleClientMessage(ctx, labID, conn, data)
	})
}

func (g *Gateway) handleClientMessage(ctx context.Context, labID string, conn *websocket.Conn, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	switch msg.Type {
	case "ping":
		_ = conn.WriteJSON(events.NewFrame("pong", nil))
	case "refresh":
		g.sendInitialState(ctx, labID, conn)
	}
}

func (g *Gateway) sendInitialState(ctx context.Context, labID string, conn *websocket.Conn) {
	lab, err := g.store.Labs.Get(ctx, labID)
	if err != nil {
		return
	}
	nodeStates, _ := g.store.NodeStates.ListByLab(ctx, labID)
	linkStates, _ := g.store.LinkStates.ListByLab(ctx, labID)

	_ = conn.WriteJSON(events.NewFrame(events.FrameInitialState, map[string]any{"lab": lab, "node_states": nodeStates}))
	_ = conn.WriteJSON(events.NewFrame(events.FrameInitialLinks, linkStates))
}

func (g *Gateway) idleHeartbeatLoop(ctx context.Context, c *events.Connection, conn *websocket.Conn, idle *time.Timer) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-idle.C:
			if err := conn.WriteJSON(events.NewFrame(events.FrameHeartbeat, nil)); err != nil {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(closeTimeout, "idle timeout"), time.Now().Add(5*time.Second))
				return
			}
			idle.Reset(idleHeartbeat)
		}
	}
}

package wsgateway

import (
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/netlab-io/controller/internal/agentclient"
)

// ConsoleDialer opens a WebSocket to the owning agent's console endpoint
// for one node. AgentClient does not implement it and ServeConsole does
// not use it.
type ConsoleDialer interface {
	DialConsole(labID, node string) (*websocket.Conn, error)
}

// ServeConsole upgrades the inbound request and relays raw frames
// bidirectionally between the browser and the socket dialConsoleSocket
// returns. dialConsoleSocket always fails, so every console session is
// closed right after the upgrade with CloseInternalServerErr and
// "console unavailable"; no frames are relayed.
func (g *Gateway) ServeConsole(w http.ResponseWriter, r *http.Request, dialer agentclient.AgentClient, labID, node string) {
	_ = dialer // concrete console dialing is agent-specific transport, wired at the caller

	browserConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("wsgateway: console upgrade failed", "lab_id", labID, "node", node, "error", err)
		return
	}
	defer browserConn.Close()

	agentConn, err := dialConsoleSocket(labID, node)
	if err != nil {
		slog.Warn("wsgateway: console dial failed", "lab_id", labID, "node", node, "error", err)
		_ = browserConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "console unavailable"), nil)
		return
	}
	defer agentConn.Close()

	var closeOnce sync.Once
	done := make(chan struct{})
	closer := func() { closeOnce.Do(func() { close(done) }) }

	go relay(browserConn, agentConn, done, closer)
	relay(agentConn, browserConn, done, closer)
}

// dialConsoleSocket is the seam through which ServeConsole obtains the
// agent's console socket. It always returns io.ErrClosedPipe and nothing
// in the module replaces it.
var dialConsoleSocket = func(labID, node string) (*websocket.Conn, error) {
	return nil, io.ErrClosedPipe
}

func relay(src, dst *websocket.Conn, done chan struct{}, closer func()) {
	for {
		select {
		case <-done:
			return
		default:
		}
		msgType, data, err := src.ReadMessage()
		if err != nil {
			closer()
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			closer()
			return
		}
	}
}

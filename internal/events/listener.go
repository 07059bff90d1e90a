package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

type listenCmd struct {
	channel string
	reply   chan error
}

// NotifyListener owns a dedicated Postgres connection used only for
// LISTEN/receive, ported from the teacher's pkg/events/listener.go. A
// generation counter distinguishes connections across reconnects so a
// receive loop from a stale connection can't deliver notifications after
// a reconnect has already subscribed to a fresh one.
type NotifyListener struct {
	connString string
	conn       *pgx.Conn

	mu       sync.Mutex
	listenGen int

	cmdCh    chan listenCmd
	handlers map[string]func(channel string, payload []byte)
}

// NewNotifyListener constructs a listener against connString. Start must
// be called before Subscribe.
func NewNotifyListener(connString string) *NotifyListener {
	return &NotifyListener{
		connString: connString,
		cmdCh:      make(chan listenCmd),
		handlers:   make(map[string]func(channel string, payload []byte)),
	}
}

// Start opens the dedicated LISTEN connection, starts the receive and
// command loops in the background and returns. The receive loop runs
// until ctx is cancelled, reconnecting with backoff on connection loss
// (spec §9 restartable-task convention).
func (l *NotifyListener) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conn = conn
	l.listenGen++
	gen := l.listenGen
	l.mu.Unlock()

	go l.receiveLoop(ctx, conn, gen)
	go l.commandLoop(ctx)
	return nil
}

func (l *NotifyListener) commandLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmdCh:
			l.mu.Lock()
			conn := l.conn
			l.mu.Unlock()
			if conn == nil {
				cmd.reply <- pgx.ErrNoRows
				continue
			}
			_, err := conn.Exec(ctx, `LISTEN "`+cmd.channel+`"`)
			cmd.reply <- err
		}
	}
}

func (l *NotifyListener) receiveLoop(ctx context.Context, conn *pgx.Conn, gen int) {
	defer conn.Close(context.Background())
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("events: notify connection lost, reconnecting", "error", err)
			l.reconnectWithBackoff(ctx, gen)
			return
		}

		l.mu.Lock()
		currentGen := l.listenGen
		l.mu.Unlock()
		if gen != currentGen {
			// A newer connection has already taken over; this loop is stale.
			return
		}

		l.dispatch(n.Channel, []byte(n.Payload))
	}
}

func (l *NotifyListener) dispatch(channel string, payload []byte) {
	l.mu.Lock()
	handlers := make([]func(string, []byte), 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()

	for _, h := range handlers {
		h(channel, payload)
	}
}

func (l *NotifyListener) reconnectWithBackoff(ctx context.Context, staleGen int) {
	delay := time.Second
	const maxDelay = 30 * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := l.Start(ctx); err != nil {
			slog.Warn("events: reconnect failed", "error", err)
			if delay < maxDelay {
				delay *= 2
			}
			continue
		}
		return
	}
}

// Subscribe sends LISTEN for channel via the serialized command channel,
// so concurrent Subscribe calls don't race on the same connection.
func (l *NotifyListener) Subscribe(channel string) error {
	reply := make(chan error, 1)
	l.cmdCh <- listenCmd{channel: channel, reply: reply}
	return <-reply
}

// Package events publishes settlement facts for downstream consumers.
// Publishing happens after the owning transaction commits and is best
// effort: a failed publish is logged, never rolled back.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	TypeBetPlaced  = "bet.placed"
	TypeBetSettled = "bet.settled"
)

// Event is the envelope written to the wire.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// BetPlaced carries the public commitment of a new bet.
type BetPlaced struct {
	BetID          string `json:"betId"`
	UserID         string `json:"userId"`
	Game           string `json:"game"`
	Currency       string `json:"currency"`
	Stake          string `json:"stake"`
	ServerSeedHash string `json:"serverSeedHash"`
	Nonce          int64  `json:"nonce"`
}

type BetSettled struct {
	BetID      string `json:"betId"`
	UserID     string `json:"userId"`
	Game       string `json:"game"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	Multiplier string `json:"multiplier"`
	Payout     string `json:"payout"`
}

type Publisher interface {
	Publish(ctx context.Context, typ string, data any) error
	Close()
}

// NewEvent stamps data with the current time.
func NewEvent(typ string, data any) Event {
	return Event{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}
}

// Emitter publishes JSON events to NATS under subjectPrefix.typ.
type Emitter struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewEmitter(natsURL, subjectPrefix string) (*Emitter, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("betsettle"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Emitter{conn: conn, subjectPrefix: subjectPrefix}, nil
}

func (e *Emitter) Subject(typ string) string {
	if e.subjectPrefix == "" {
		return typ
	}

	return e.subjectPrefix + "." + typ
}

func (e *Emitter) Publish(_ context.Context, typ string, data any) error {
	payload, err := json.Marshal(NewEvent(typ, data))
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}

	err = e.conn.Publish(e.Subject(typ), payload)
	if err != nil {
		return fmt.Errorf("publish %s: %w", typ, err)
	}

	return nil
}

// Close flushes pending messages and closes the connection.
func (e *Emitter) Close() {
	if e.conn == nil {
		return
	}

	err := e.conn.Drain()
	if err != nil {
		e.conn.Close()
	}
}

// Nop drops every event. It stands in when no NATS URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close()                                     {}

// Emit publishes and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, typ string, data any) {
	err := p.Publish(ctx, typ, data)
	if err != nil {
		slog.WarnContext(ctx, "event not published", "type", typ, "error", err)
	}
}

// Package events announces work-item completions to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const DefaultSubject = "harvest.item.completed"

type ItemCompleted struct {
	RunID     string    `json:"runId"`
	Item      string    `json:"item"`
	Partition string    `json:"partition"`
	Category  string    `json:"category,omitempty"`
	Admitted  int       `json:"admitted"`
	Pages     int       `json:"pages"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev ItemCompleted) error
	Close() error
}

// Nop is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ItemCompleted) error { return nil }
func (Nop) Close() error { return nil }

type NATS struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

func ConnectNATS(url, subject string, log *zap.Logger) (*NATS, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("poi-harvest"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", url, err)
	}
	return NewNATS(nc, subject, log), nil
}

func NewNATS(nc *nats.Conn, subject string, log *zap.Logger) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NATS{conn: nc, subject: subject, log: log}
}

// Publish is fire-and-forget: a lost event never fails the harvest.
func (n *NATS) Publish(_ context.Context, ev ItemCompleted) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.log.Warn("Failed to publish event", zap.String("subject", n.subject), zap.Error(err))
		return err
	}
	return nil
}

func (n *NATS) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}

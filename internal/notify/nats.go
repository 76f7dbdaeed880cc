package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// publisher hides the difference between core NATS and JetStream publishing.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

type corePublisher struct{ conn *nats.Conn }

func (p corePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}

type jetStreamPublisher struct{ js jetstream.JetStream }

func (p jetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.js.Publish(ctx, subject, data)
	return err
}

// NATSNotifier publishes run events to a NATS subject.
type NATSNotifier struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	timeout time.Duration
}

// New returns a NATS notifier when cfg names a server, Nop otherwise.
func New(cfg config.NotifyConfig) (Notifier, error) {
	if cfg.NATSURL == "" {
		return Nop{}, nil
	}
	n, err := NewNATSNotifier(cfg)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// NewNATSNotifier connects to cfg.NATSURL.
func NewNATSNotifier(cfg config.NotifyConfig) (*NATSNotifier, error) {
	timeout := config.ParseDurationOr(cfg.Timeout, 5*time.Second)
	conn, err := nats.Connect(cfg.NATSURL, nats.Name("docpublish"), nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var pub publisher = corePublisher{conn: conn}
	if cfg.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		pub = jetStreamPublisher{js: js}
	}

	slog.Debug("NATS notifier initialized",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject),
		slog.Bool("jetstream", cfg.JetStream))
	return &NATSNotifier{conn: conn, pub: pub, subject: cfg.Subject, timeout: timeout}, nil
}

// Notify publishes ev, bounded by the configured timeout.
func (n *NATSNotifier) Notify(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.pub.Publish(ctx, n.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	slog.Debug("Published run event", logfields.RunID(ev.RunID), logfields.Outcome(ev.Outcome), slog.String("subject", n.subject))
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

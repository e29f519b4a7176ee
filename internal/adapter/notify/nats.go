package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
)

// NATSNotifier publishes engine events as JSON messages on NATS subjects,
// prefixed so multiple deployments can share a cluster.
type NATSNotifier struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSNotifier creates a notifier on an existing connection. prefix may
// be empty.
func NewNATSNotifier(conn *nats.Conn, prefix string) *NATSNotifier {
	return &NATSNotifier{conn: conn, prefix: prefix}
}

func (n *NATSNotifier) Publish(_ context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "marshaling event %s", subject)
	}

	if n.prefix != "" {
		subject = n.prefix + "." + subject
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return eris.Wrapf(err, "publishing event %s", subject)
	}
	return nil
}

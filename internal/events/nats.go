package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const subjectPrefix = "gigflow."

// Conn is the subset of *nats.Conn the forwarder needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes bus events as JSON on gigflow.<topic> subjects.
type NATSForwarder struct {
	conn   Conn
	logger *zap.SugaredLogger
}

func NewNATSForwarder(conn Conn, logger *zap.SugaredLogger) *NATSForwarder {
	return &NATSForwarder{conn: conn, logger: logger}
}

// ConnectNATS dials url and returns the connection for use with NewNATSForwarder.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("gigflow"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

func Subject(t Topic) string {
	return subjectPrefix + string(t)
}

// Handle is a bus Handler.
func (f *NATSForwarder) Handle(_ context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		f.logger.Errorw("failed to marshal event", "topic", e.Topic, "error", err)
		return
	}
	subject := Subject(e.Topic)
	if err := f.conn.Publish(subject, data); err != nil {
		f.logger.Errorw("failed to publish to nats", "subject", subject, "error", err)
		return
	}
	f.logger.Debugw("published event", "subject", subject)
}

package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Config holds configuration for the NATS publisher.
type Config struct {
	URL      string
	User     string
	Password string
}

// Publisher publishes structured lifecycle events to NATS. Grounded on
// k8s-controller/pkg/events/subscriber.go's connection setup (same
// nats.Connect option set, same reconnect policy) trimmed to the
// publish-only half this engine needs: it never subscribes to anything.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS and returns a ready Publisher. Callers
// (cmd/main.go) are expected to tolerate a non-nil error and continue
// running without a publisher, matching the teacher's
// "continuing without NATS" graceful-degradation behavior.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name("devserver-engine"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect to NATS: %w", err)
	}

	return &Publisher{conn: conn}, nil
}

// Close closes the underlying NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) publish(subject string, event interface{}) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", subject, err)
	}
	return p.conn.Publish(subject, data)
}

// newEventID generates an event ID using a real UUID rather than the
// teacher's "sync-<id>-<unixnano>" string composition, since this package
// already carries google/uuid as a direct dependency for this purpose.
func newEventID() string {
	return uuid.NewString()
}

// PublishDevServer publishes a DevServer lifecycle event. A nil Publisher
// silently drops the event so reconcilers can always call this
// unconditionally even when NATS is unavailable.
func (p *Publisher) PublishDevServer(subject, name, namespace, owner, phase, reason, message string) error {
	return p.publish(subject, DevServerEvent{
		EventID:   newEventID(),
		Timestamp: time.Now(),
		Name:      name,
		Namespace: namespace,
		Owner:     owner,
		Phase:     phase,
		Reason:    reason,
		Message:   message,
	})
}

// PublishChild publishes ChildCreated/ChildPatched events for a specific
// owned object kind and name.
func (p *Publisher) PublishChild(subject, name, namespace, childKind, childName string) error {
	return p.publish(subject, DevServerEvent{
		EventID:   newEventID(),
		Timestamp: time.Now(),
		Name:      name,
		Namespace: namespace,
		ChildKind: childKind,
		ChildName: childName,
	})
}

// PublishUser publishes a DevServerUser lifecycle event.
func (p *Publisher) PublishUser(subject, username, namespace, message string) error {
	return p.publish(subject, DevServerUserEvent{
		EventID:   newEventID(),
		Timestamp: time.Now(),
		Username:  username,
		Namespace: namespace,
		Message:   message,
	})
}

// PublishFlavor publishes a flavor validation event.
func (p *Publisher) PublishFlavor(name string, available bool, message string) error {
	return p.publish(SubjectFlavorValidated, FlavorEvent{
		EventID:   newEventID(),
		Timestamp: time.Now(),
		Name:      name,
		Available: available,
		Message:   message,
	})
}

// Package eventbus publishes emission progress over NATS so dashboards
// and alerting can follow a batch without polling the spreadsheet.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject carries both per-row results and batch summaries.
const DefaultSubject = "ticketera.emissions"

// NATSBus is a fire-and-forget publisher. Emission events are advisory:
// a broker outage must never stall or fail a batch, so the connection
// retries in the background and publishes buffer while disconnected.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

type NATSConfig struct {
	URL     string
	Subject string
}

func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("ticketera-emitter"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("eventbus disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("eventbus reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("could not connect to NATS at %s: %w", url, err)
	}
	return &NATSBus{nc: nc, subject: subject}, nil
}

// Publish sends one event. Delivery is best effort: while the broker is
// unreachable the event sits in the client's reconnect buffer.
func (b *NATSBus) Publish(ctx context.Context, evt EmissionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !evt.MinimalValidate() {
		return fmt.Errorf("invalid event: missing required fields")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("could not encode event: %w", err)
	}
	if err := b.nc.Publish(b.subject, data); err != nil {
		return fmt.Errorf("could not publish to %s: %w", b.subject, err)
	}
	return nil
}

// Close flushes what it can and drops the connection.
func (b *NATSBus) Close() {
	if b.nc != nil {
		_ = b.nc.Drain()
	}
}

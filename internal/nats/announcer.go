// internal/nats/announcer.go
package nats

import (
	"fmt"
	"log"

	"github.com/taskhub/taskhub/internal/coordinator"
)

// Announcer publishes lifecycle events to per-namespace subjects so
// out-of-process agents can watch the hub without polling. Subjects
// look like taskhub.<namespace>.events.<type>.
type Announcer struct {
	client *Client
}

// NewAnnouncer creates a NATS-backed event announcer
func NewAnnouncer(client *Client) *Announcer {
	return &Announcer{client: client}
}

// Announce publishes one event; failures are logged and dropped
func (a *Announcer) Announce(ev coordinator.Event) {
	subject := fmt.Sprintf("taskhub.%s.events.%s", ev.Namespace, ev.Type)
	if err := a.client.PublishJSON(subject, ev); err != nil {
		log.Printf("[NATS] Error publishing %s: %v", subject, err)
	}
}

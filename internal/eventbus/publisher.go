package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tobolak1/ppc-checker/internal/models"
)

// Publisher publishes finding events to NATS. The pipeline treats the event
// bus as optional: a nil Publisher is valid and every method on it is a no-op,
// so a missing broker degrades to log-only operation instead of blocking runs.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS with reconnect enabled.
func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Connected to NATS at %s", natsURL)

	return &Publisher{
		conn: conn,
	}, nil
}

// PublishFinding publishes a new finding to the "findings" topic.
func (p *Publisher) PublishFinding(finding *models.Finding) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(finding)
	if err != nil {
		return err
	}

	if err := p.conn.Publish("findings", data); err != nil {
		return err
	}

	log.Printf("Published finding to event bus: [%s] %s", finding.Severity, finding.CheckID)

	return nil
}

// ResolvedEvent announces that a finding auto-resolved.
type ResolvedEvent struct {
	FindingID  string `json:"finding_id"`
	CheckID    string `json:"check_id"`
	ProjectID  string `json:"project_id"`
	ResolvedAt int64  `json:"resolved_at"`
}

// PublishResolved publishes a resolution to the "findings.resolved" topic.
func (p *Publisher) PublishResolved(event *ResolvedEvent) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish("findings.resolved", data); err != nil {
		return err
	}

	log.Printf("Published resolution to event bus: finding=%s check=%s", event.FindingID, event.CheckID)

	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
		log.Println("Disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/prodcal/core/calendar"
	coremon "github.com/kilianp07/prodcal/core/monitoring"
	"github.com/kilianp07/prodcal/infra/logger"
)

// Topic returns the topic of a view:
// <prefix>/<view>/<machine or "all">/<date>.
func Topic(prefix string, v calendar.View) string {
	target := "all"
	if v.Mode == calendar.ViewIndividual && len(v.Machines) == 1 {
		target = v.Machines[0]
	}
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimSuffix(prefix, "/"), strings.ToLower(string(v.Mode)), target, v.Date)
}

// Publisher publishes rendered calendar views as JSON.
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewPublisher connects to the broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-publisher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// PublishView sends v to its topic, retrying with exponential backoff.
func (p *Publisher) PublishView(ctx context.Context, v calendar.View) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	topic := Topic(p.prefix, v)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Debugf("published %s (%d bytes)", topic, len(payload))
			return nil
		}
		p.log.Warnf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic})
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

// MemoryPublisher keeps published views in memory. It is used when MQTT is
// disabled and in tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	prefix string
	Views  map[string]calendar.View
}

// NewMemoryPublisher creates an empty MemoryPublisher.
func NewMemoryPublisher(prefix string) *MemoryPublisher {
	return &MemoryPublisher{prefix: prefix, Views: make(map[string]calendar.View)}
}

// PublishView stores v under its topic.
func (m *MemoryPublisher) PublishView(_ context.Context, v calendar.View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Views[Topic(m.prefix, v)] = v
	return nil
}

// Get returns the view stored under topic.
func (m *MemoryPublisher) Get(topic string) (calendar.View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Views[topic]
	return v, ok
}

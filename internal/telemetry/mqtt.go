// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/shopfloor-dev/jobscheduler/internal/conf"
)

// BatchSummary is the fire-and-forget telemetry envelope published
// after every batch run: counts of jobs scheduled and failed, an
// optional reason and a timestamp. It goes to the MQTT broker instead
// of the websocket fan-out, so external dashboards can subscribe without adding a
// dependency on the transport layer.
type BatchSummary struct {
	Scheduled int       `json:"scheduled"`
	Failed    int       `json:"failed"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes BatchSummary envelopes to an MQTT broker: lazy
// connect, publish under lock, log-and-continue on error, narrowed to
// the one publish path this core needs.
type Publisher interface {
	Publish(topic string, summary BatchSummary)
	Disconnect()
}

type mqttPublisher struct {
	cfg    conf.MQTTConfig
	lock   sync.Mutex
	client pahomqtt.Client
}

// NewPublisher builds a Publisher bound to cfg. When cfg.Enabled is
// false, the returned Publisher is a no-op so callers never need to
// branch on whether MQTT is configured.
func NewPublisher(cfg conf.MQTTConfig) Publisher {
	if !cfg.Enabled {
		return noopPublisher{}
	}
	return &mqttPublisher{cfg: cfg}
}

func (p *mqttPublisher) connect() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.client != nil && p.client.IsConnected() {
		return nil
	}
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.cfg.URL)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetUsername(p.cfg.Username)
	opts.SetPassword(p.cfg.Password)
	//nolint:gosec // client id collision risk is cosmetic, not a security boundary.
	opts.SetClientID(fmt.Sprintf("jobscheduler-%d", rand.Intn(1_000_000)))
	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	p.client = client
	return nil
}

// Publish sends summary to topic, fire-and-forget: errors are logged,
// never returned, so a broken broker can never block the scheduler.
func (p *mqttPublisher) Publish(topic string, summary BatchSummary) {
	if err := p.publish(topic, summary); err != nil {
		slog.Error("telemetry: failed to publish batch summary", "err", err)
	}
}

func (p *mqttPublisher) publish(topic string, summary BatchSummary) error {
	if err := p.connect(); err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling batch summary: %w", err)
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	token := p.client.Publish(topic, 1, false, data)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *mqttPublisher) Disconnect() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, BatchSummary) {}
func (noopPublisher) Disconnect()                  {}

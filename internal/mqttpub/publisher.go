// Package mqttpub publishes fix reports to an MQTT broker.
package mqttpub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"nmeafix/internal/gps"
)

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Interval time.Duration
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	cfg    Config
	client client
	last   string
}

// Connect dials the broker and returns a publisher for cfg.Topic.
func Connect(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect broker=%s: %w", cfg.Broker, token.Error())
	}
	log.Printf("mqtt connected broker=%s topic=%s", cfg.Broker, cfg.Topic)
	return newPublisher(cfg, c), nil
}

func newPublisher(cfg Config, c client) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Publisher{cfg: cfg, client: c}
}

// Publish sends fix as a retained JSON message. A fix whose time matches the
// previous publish is skipped, so a stalled receiver does not repeat itself.
func (p *Publisher) Publish(fix gps.Fix) (bool, error) {
	if fix.Time == "" || fix.Time == p.last {
		return false, nil
	}
	payload, err := json.Marshal(fix)
	if err != nil {
		return false, err
	}
	token := p.client.Publish(p.cfg.Topic, 0, true, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return false, fmt.Errorf("mqtt publish topic=%s: %w", p.cfg.Topic, err)
	}
	p.last = fix.Time
	return true, nil
}

// Run publishes the current fix every interval until ctx is done, then
// disconnects.
func (p *Publisher) Run(ctx context.Context, current func() gps.Fix) {
	t := time.NewTicker(p.cfg.Interval)
	defer t.Stop()
	defer p.client.Disconnect(250)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if _, err := p.Publish(current()); err != nil {
			log.Printf("%v", err)
		}
	}
}

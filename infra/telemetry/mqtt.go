// Package telemetry bridges session snapshots to an MQTT broker so
// external dashboards can follow a charge in near-real time. The bridge is
// a plain bus subscriber: it never feeds back into the simulator.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/chargeflow/chargeflow/core/model"
	"github.com/chargeflow/chargeflow/infra/logger"
	"github.com/chargeflow/chargeflow/internal/eventbus"
)

// Config defines the MQTT connection for the telemetry bridge.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies defaults for optional fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "chargeflow-telemetry"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "chargeflow"
	}
}

// Bridge publishes focused session snapshots to MQTT.
type Bridge struct {
	cli paho.Client
	cfg Config
	bus *eventbus.Bus[model.SessionSnapshot]
	log logger.Logger
}

// NewBridge connects to the broker.
func NewBridge(cfg Config, bus *eventbus.Bus[model.SessionSnapshot]) (*Bridge, error) {
	cfg.SetDefaults()
	log := logger.New("telemetry")
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Bridge{cli: cli, cfg: cfg, bus: bus, log: log}, nil
}

// Run forwards snapshots from the bus until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.bus.Subscribe()
	defer b.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub:
			if !ok {
				return
			}
			b.publish(snap)
		}
	}
}

func (b *Bridge) publish(snap model.SessionSnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		b.log.Errorf("marshal snapshot: %v", err)
		return
	}
	topic := fmt.Sprintf("%s/evse/%s/session", b.cfg.TopicPrefix, snap.EVSE.ID)
	token := b.cli.Publish(topic, b.cfg.QoS, false, payload)
	// Fire and forget with a short grace period; a slow broker must not
	// stall the bridge loop.
	go func() {
		if ok := token.WaitTimeout(2 * time.Second); !ok || token.Error() != nil {
			b.log.Warnf("publish %s failed: %v", topic, token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.cli.Disconnect(250)
}

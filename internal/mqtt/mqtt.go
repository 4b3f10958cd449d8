// Package mqtt carries schedule-change notifications between the server and
// the bell agents. The server publishes on every mutation; agents subscribe
// and reconcile, and also treat broker reconnects as a "back online" signal.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// SchedulesTopic announces changes to the schedule set.
const SchedulesTopic = "belfry/schedules"

// SettingsTopic announces changes to the global settings (holiday mode,
// volume).
const SettingsTopic = "belfry/settings"

// Client wraps a paho connection with the two patterns this system uses:
// publish-on-mutation and subscribe-to-reconcile.
type Client struct {
	c paho.Client
}

// Connect dials the broker. onConnect runs on every (re)connect, including
// the first, so agents can reconcile immediately when the network returns.
func Connect(brokerURL, clientID string, onConnect func()) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(paho.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
		if onConnect != nil {
			onConnect()
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	c := paho.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", brokerURL, token.Error())
	}
	return &Client{c: c}, nil
}

// Publish sends one message at QoS 1.
func (m *Client) Publish(topic string, payload []byte) error {
	token := m.c.Publish(topic, 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for a topic at QoS 1.
func (m *Client) Subscribe(topic string, handler func(payload []byte)) error {
	token := m.c.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return nil
}

// Disconnect flushes and closes the connection.
func (m *Client) Disconnect() {
	m.c.Disconnect(250)
}

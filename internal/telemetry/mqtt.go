package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/rover/internal/locator"
)

// mqttPublisher is the part of paho.Client the sink uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTTSink publishes reports as JSON to a topic. The last report is retained
// so late subscribers see the current pose immediately.
type MQTTSink struct {
	client  mqttPublisher
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTTSink returns a sink publishing to topic at QoS 0.
func NewMQTTSink(client mqttPublisher, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, timeout: 2 * time.Second}
}

func (s *MQTTSink) Name() string { return "mqtt:" + s.topic }

func (s *MQTTSink) Send(ctx context.Context, r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	token := s.client.Publish(s.topic, s.qos, true, payload)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("publish timed out")
	}
}

// DialMQTT connects to broker and returns the client. The client reconnects
// on its own after the first successful connection.
func DialMQTT(broker, clientID string, timeout time.Duration) (paho.Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logf("mqtt connection lost: %v", err)
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %s", broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return client, nil
}

// OverridesTarget receives override updates from the command topic.
type OverridesTarget interface {
	SetOverrides(locator.Overrides)
}

// mqttSubscriber is the part of paho.Client SubscribeOverrides uses.
type mqttSubscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// SubscribeOverrides routes override commands on topic to target and waits
// up to timeout for the broker to acknowledge the subscription.
func SubscribeOverrides(client mqttSubscriber, topic string, target OverridesTarget, timeout time.Duration) error {
	token := client.Subscribe(topic, 1, OverridesHandler(target))
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("subscribe to %s: timed out after %s", topic, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	return nil
}

// OverridesHandler returns a paho handler that applies JSON-encoded
// locator.Overrides received on a command topic. Malformed payloads are
// logged and ignored.
func OverridesHandler(target OverridesTarget) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var o locator.Overrides
		if err := json.Unmarshal(msg.Payload(), &o); err != nil {
			logf("ignoring overrides on %s: %v", msg.Topic(), err)
			return
		}
		target.SetOverrides(o)
		logf("overrides updated via %s: %+v", msg.Topic(), o)
	}
}

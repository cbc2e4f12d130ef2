package n2kd

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSink republishes every decoded-message line onto an MQTT broker
// topic, an additional enrichment sink beyond n2kd's three TCP client
// flavours (SPEC_FULL.md's n2kd enrichment list).
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

// NewMQTTSink connects to brokerURL (e.g. "tcp://localhost:1883") and
// returns a sink that publishes to topic.
func NewMQTTSink(brokerURL, topic, clientID string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("n2kd: connecting to MQTT broker %s: %w", brokerURL, tok.Error())
	}
	return &MQTTSink{client: client, topic: topic}, nil
}

// Run republishes every line from the server's subscription feed. Stopping
// s does not close that feed, so Run does not return; it is run in its own
// goroutine.
func (m *MQTTSink) Run(s *Server) {
	sub := s.subscribeLines()
	defer s.unsubscribeLines(sub)
	for line := range sub {
		m.client.Publish(m.topic, 0, false, line)
	}
}

// Close disconnects from the broker.
func (m *MQTTSink) Close() {
	m.client.Disconnect(250)
}

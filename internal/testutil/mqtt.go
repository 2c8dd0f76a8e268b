package testutil

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type FakeMessage struct {
	TopicName string
	Body      []byte
}

func (m FakeMessage) Duplicate() bool   { return false }
func (m FakeMessage) Qos() byte         { return 0 }
func (m FakeMessage) Retained() bool    { return false }
func (m FakeMessage) Topic() string     { return m.TopicName }
func (m FakeMessage) MessageID() uint16 { return 0 }
func (m FakeMessage) Payload() []byte   { return m.Body }
func (m FakeMessage) Ack()              {}

// FakeToken completes immediately with Err, unless Pending is set, in which
// case it never completes.
type FakeToken struct {
	Err     error
	Pending bool
}

func (t FakeToken) Done() <-chan struct{} {
	done := make(chan struct{})
	if !t.Pending {
		close(done)
	}
	return done
}

func (t FakeToken) Wait() bool                       { return !t.Pending }
func (t FakeToken) WaitTimeout(_ time.Duration) bool { return !t.Pending }
func (t FakeToken) Error() error                     { return t.Err }

type PublishCall struct {
	Topic   string
	QoS     byte
	Retain  bool
	Payload []byte
}

// FakeClient is an in-memory mqtt.Client. Subscriptions are kept so tests can
// Deliver messages to them.
type FakeClient struct {
	mu            sync.Mutex
	publishes     []PublishCall
	subscriptions map[string]mqtt.MessageHandler
	stalled       bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{subscriptions: map[string]mqtt.MessageHandler{}}
}

func (c *FakeClient) IsConnected() bool      { return true }
func (c *FakeClient) IsConnectionOpen() bool { return true }
func (c *FakeClient) Connect() mqtt.Token    { return FakeToken{} }
func (c *FakeClient) Disconnect(_ uint)      {}

func (c *FakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = append([]byte(nil), v...)
	case string:
		b = []byte(v)
	default:
		tmp, _ := json.Marshal(v)
		b = tmp
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes = append(c.publishes, PublishCall{Topic: topic, QoS: qos, Retain: retained, Payload: b})
	return FakeToken{Pending: c.stalled}
}

// Stall makes later publishes return tokens that never complete, as with a
// broker that stopped acknowledging.
func (c *FakeClient) Stall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stalled = true
}

func (c *FakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topic] = cb
	return FakeToken{}
}

func (c *FakeClient) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic := range filters {
		c.subscriptions[topic] = cb
	}
	return FakeToken{}
}

func (c *FakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.subscriptions, topic)
	}
	return FakeToken{}
}

func (c *FakeClient) AddRoute(_ string, _ mqtt.MessageHandler) {}
func (c *FakeClient) OptionsReader() mqtt.ClientOptionsReader  { return mqtt.ClientOptionsReader{} }

func (c *FakeClient) Publishes() []PublishCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PublishCall(nil), c.publishes...)
}

// Deliver hands payload to the handler subscribed on exactly topic. It
// reports false when nothing subscribed to it.
func (c *FakeClient) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	cb, ok := c.subscriptions[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	cb(c, FakeMessage{TopicName: topic, Body: payload})
	return true
}

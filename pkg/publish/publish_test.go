package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/itohio/goct/pkg/config"
	"github.com/itohio/goct/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done bool
	err  error
}

func (t *fakeToken) Wait() bool                     { return t.done }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.done {
		close(ch)
	}
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic   string
	retain  bool
	payload []byte
}

// fakeClient records publishes. Methods the publisher never calls panic
// through the embedded nil interface.
type fakeClient struct {
	mqtt.Client

	connected    bool
	connectToken *fakeToken
	publishErr   map[string]error
	stall        bool
	messages     []message
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Connect() mqtt.Token {
	if c.connectToken != nil {
		return c.connectToken
	}
	c.connected = true
	return &fakeToken{done: true}
}

func (c *fakeClient) Disconnect(uint) {
	c.connected = false
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	}
	c.messages = append(c.messages, message{topic: topic, retain: retained, payload: b})
	return &fakeToken{done: !c.stall, err: c.publishErr[topic]}
}

func testPublisher(client *fakeClient) *Publisher {
	cfg := config.Default().MQTT
	cfg.Host = "broker.local"
	cfg.BaseTopic = "house"
	return newWithClient(cfg, client, nil)
}

func TestEnabled(t *testing.T) {
	cfg := config.Default().MQTT
	assert.False(t, Enabled(cfg))
	cfg.Host = "localhost"
	assert.True(t, Enabled(cfg))
}

func TestOptsFromConfig(t *testing.T) {
	cfg := config.MQTTConfig{
		Host:      "broker.local",
		Port:      1884,
		Username:  "user",
		Password:  "secret",
		BaseTopic: "house",
	}

	opts := OptsFromConfig(cfg)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://broker.local:1884", opts.Servers[0].String())
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "house/status", opts.WillTopic)
	assert.Equal(t, []byte(PayloadOffline), opts.WillPayload)
	assert.True(t, opts.WillRetained)
	assert.Contains(t, opts.ClientID, "goct_")
}

func TestOptsFromConfig_Anonymous(t *testing.T) {
	opts := OptsFromConfig(config.MQTTConfig{Host: "h", Port: 1883, Username: "user"})
	assert.Empty(t, opts.Username)
}

func TestTopics(t *testing.T) {
	p := testPublisher(&fakeClient{})

	assert.Equal(t, "house/ct/2/state", p.StateTopic(2))
	assert.Equal(t, "house/status", p.StatusTopic())
	assert.Equal(t, "house/info", p.InfoTopic())
}

func TestConnect(t *testing.T) {
	client := &fakeClient{}
	p := testPublisher(client)

	require.NoError(t, p.Connect())

	require.Len(t, client.messages, 2)
	assert.Equal(t, message{topic: "house/status", retain: true, payload: []byte(PayloadOnline)}, client.messages[0])

	assert.Equal(t, "house/info", client.messages[1].topic)
	assert.True(t, client.messages[1].retain)
	var info Info
	require.NoError(t, json.Unmarshal(client.messages[1].payload, &info))
	assert.NotEmpty(t, info.Version)
	assert.False(t, info.Started.IsZero())
}

func TestConnect_Timeout(t *testing.T) {
	client := &fakeClient{connectToken: &fakeToken{done: false}}
	p := testPublisher(client)

	err := p.Connect()
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Empty(t, client.messages)
}

func TestConnect_Refused(t *testing.T) {
	refused := errors.New("not authorized")
	client := &fakeClient{connectToken: &fakeToken{done: true, err: refused}}
	p := testPublisher(client)

	assert.ErrorIs(t, p.Connect(), refused)
}

func TestPublish(t *testing.T) {
	client := &fakeClient{connected: true}
	p := testPublisher(client)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	readings := []sample.Reading{
		{Timestamp: ts, Channel: 0, Pass: 3, Current: 12.5, Voltage: 230, Power: 2875, Energy: 2.4},
		{Timestamp: ts, Channel: 1, Pass: 3},
	}

	require.NoError(t, p.Publish(readings))

	require.Len(t, client.messages, 2)
	assert.Equal(t, "house/ct/0/state", client.messages[0].topic)
	assert.False(t, client.messages[0].retain)
	assert.Equal(t, "house/ct/1/state", client.messages[1].topic)

	var got map[string]any
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &got))
	assert.Equal(t, 12.5, got["current"])
	assert.Equal(t, 2875.0, got["power"])
	assert.Equal(t, 3.0, got["pass"])
	assert.Equal(t, "2024-01-02T03:04:05Z", got["timestamp"])
}

func TestPublish_ContinuesAfterError(t *testing.T) {
	failed := errors.New("queue full")
	client := &fakeClient{
		connected:  true,
		publishErr: map[string]error{"house/ct/0/state": failed},
	}
	p := testPublisher(client)

	err := p.Publish([]sample.Reading{{Channel: 0}, {Channel: 1}})

	assert.ErrorIs(t, err, failed)
	assert.Len(t, client.messages, 2)
}

func TestPublish_Timeout(t *testing.T) {
	client := &fakeClient{connected: true, stall: true}
	p := testPublisher(client)

	assert.ErrorIs(t, p.Publish([]sample.Reading{{Channel: 0}}), ErrTimeout)
}

func TestClose(t *testing.T) {
	client := &fakeClient{connected: true}
	p := testPublisher(client)

	require.NoError(t, p.Close())

	require.Len(t, client.messages, 1)
	assert.Equal(t, message{topic: "house/status", retain: true, payload: []byte(PayloadOffline)}, client.messages[0])
	assert.True(t, client.disconnected)
}

func TestClose_NotConnected(t *testing.T) {
	client := &fakeClient{}
	p := testPublisher(client)

	assert.NoError(t, p.Close())
	assert.Empty(t, client.messages)
	assert.False(t, client.disconnected)
}

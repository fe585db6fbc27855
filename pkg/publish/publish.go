package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/carlmjohnson/versioninfo"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/itohio/goct/pkg/config"
	"github.com/itohio/goct/pkg/sample"
	"go.uber.org/zap"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

var ErrTimeout = errors.New("mqtt operation timed out")

// Info is the retained description of the running collector.
type Info struct {
	Version  string    `json:"version"`
	Revision string    `json:"revision"`
	Started  time.Time `json:"started"`
}

// Publisher pushes readings to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	cfg    config.MQTTConfig
	logger *zap.Logger
}

// Enabled reports whether cfg names a broker.
func Enabled(cfg config.MQTTConfig) bool {
	return cfg.Host != ""
}

// OptsFromConfig builds client options with an offline last will.
func OptsFromConfig(cfg config.MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(fmt.Sprintf("goct_%d", rand.IntN(1000)))
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetWill(statusTopic(cfg.BaseTopic), PayloadOffline, 0, true)
	opts.SetAutoReconnect(true)

	return opts
}

// New creates a publisher for the broker in cfg.
func New(cfg config.MQTTConfig, logger *zap.Logger) *Publisher {
	opts := OptsFromConfig(cfg)
	p := newWithClient(cfg, nil, logger)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.logger.Info("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.logger.Warn("mqtt connection lost", zap.Error(err))
	})
	p.client = mqtt.NewClient(opts)
	return p
}

func newWithClient(cfg config.MQTTConfig, client mqtt.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = config.Default().MQTT.Timeout
	}
	return &Publisher{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("broker", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))),
	}
}

// StateTopic is where readings of channel are published.
func (p *Publisher) StateTopic(channel int) string {
	return fmt.Sprintf("%s/ct/%d/state", p.cfg.BaseTopic, channel)
}

// StatusTopic carries the online/offline availability.
func (p *Publisher) StatusTopic() string {
	return statusTopic(p.cfg.BaseTopic)
}

// InfoTopic carries the retained Info payload.
func (p *Publisher) InfoTopic() string {
	return fmt.Sprintf("%s/info", p.cfg.BaseTopic)
}

// Connect connects to the broker and announces availability.
func (p *Publisher) Connect() error {
	if err := p.wait(p.client.Connect(), "connect"); err != nil {
		return err
	}

	if err := p.publish(p.StatusTopic(), true, PayloadOnline); err != nil {
		return err
	}

	info, err := json.Marshal(Info{
		Version:  versioninfo.Short(),
		Revision: versioninfo.Revision,
		Started:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal info: %w", err)
	}
	return p.publish(p.InfoTopic(), true, info)
}

// Publish sends one state message per reading. All readings are attempted.
func (p *Publisher) Publish(readings []sample.Reading) error {
	var errs []error
	for _, r := range readings {
		payload, err := json.Marshal(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", r.Channel, err))
			continue
		}
		if err := p.publish(p.StateTopic(r.Channel), false, payload); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", r.Channel, err))
		}
	}
	return errors.Join(errs...)
}

// Close marks the collector offline and disconnects.
func (p *Publisher) Close() error {
	if !p.client.IsConnected() {
		return nil
	}

	err := p.publish(p.StatusTopic(), true, PayloadOffline)
	p.client.Disconnect(uint(p.cfg.Timeout.Milliseconds()))
	return err
}

func (p *Publisher) publish(topic string, retain bool, payload any) error {
	if err := p.wait(p.client.Publish(topic, 0, retain, payload), "publish"); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) wait(token mqtt.Token, op string) error {
	if !token.WaitTimeout(p.cfg.Timeout) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt %s failed: %w", op, err)
	}
	return nil
}

func statusTopic(baseTopic string) string {
	return fmt.Sprintf("%s/status", baseTopic)
}

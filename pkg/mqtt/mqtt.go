package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type IPublisher interface {
	Publish(topic string, payload interface{}) error
	Close()
}

type Config struct {
	Enabled     bool
	Broker      string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

var NewClientFunc = paho.NewClient

type publisher struct {
	cfg    Config
	client paho.Client
	log    *logrus.Logger
}

// New returns a no-op publisher when MQTT is disabled. Otherwise it connects
// once and relies on paho's auto-reconnect afterwards.
func New(cfg Config, log *logrus.Logger) (IPublisher, error) {
	if !cfg.Enabled {
		log.Info("MQTT publisher is disabled")
		return noop{}, nil
	}

	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)

	p := &publisher{cfg: cfg, log: log}

	opts := paho.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.WithFields(logrus.Fields{
			"broker": brokerURL,
			"error":  err.Error(),
		}).Error("MQTT connection lost")
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		log.WithField("broker", brokerURL).Info("Connected to MQTT broker")
	})

	p.client = NewClientFunc(opts)
	if token := p.client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", brokerURL, token.Error())
	}

	return p, nil
}

// Publish sends payload as JSON to <TopicPrefix>/<topic> at QoS 1 without
// waiting for the broker acknowledgement.
func (p *publisher) Publish(topic string, payload interface{}) error {
	data, err := jsoniter.Marshal(payload)
	if err != nil {
		return err
	}

	full := topic
	if p.cfg.TopicPrefix != "" {
		full = p.cfg.TopicPrefix + "/" + topic
	}

	token := p.client.Publish(full, 1, false, data)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			p.log.WithFields(logrus.Fields{
				"topic": full,
				"error": token.Error().Error(),
			}).Warn("MQTT publish failed")
		}
	}()
	return nil
}

func (p *publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

type noop struct{}

func (noop) Publish(string, interface{}) error { return nil }
func (noop) Close()                            {}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
)

const DefaultTopicPrefix = "devices"

type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Timeout     time.Duration
}

// MQTTSink publica la última lectura como mensaje retenido por dispositivo.
// Un suscriptor nuevo recibe siempre el estado más reciente.
type MQTTSink struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

func NewMQTTSink(opts MQTTOptions) (*MQTTSink, error) {
	if opts.ClientID == "" {
		opts.ClientID = "gtrc-svr"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	mopt := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.Timeout).
		SetOrderMatters(false)
	client := mqtt.NewClient(mopt)
	tok := client.Connect()
	if !tok.WaitTimeout(opts.Timeout) {
		return nil, errors.Timeoutf("mqtt connect %s", opts.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, errors.Annotatef(err, "mqtt connect %s", opts.Broker)
	}
	return newMQTTSink(client, opts.TopicPrefix, opts.Timeout), nil
}

func newMQTTSink(client mqtt.Client, prefix string, timeout time.Duration) *MQTTSink {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTTSink{client: client, prefix: prefix, timeout: timeout}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Topic: <prefix>/<device_id>/state
func (s *MQTTSink) Topic(deviceID string) string {
	return fmt.Sprintf("%s/%s/state", s.prefix, deviceID)
}

func (s *MQTTSink) Upsert(ctx context.Context, deviceID string, f Fields, at time.Time) error {
	payload, err := json.Marshal(NewDocument(deviceID, f, at))
	if err != nil {
		return errors.Trace(err)
	}
	tok := s.client.Publish(s.Topic(deviceID), 1, true, payload)
	wait := s.timeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
		wait = time.Until(dl)
	}
	if !tok.WaitTimeout(wait) {
		return errors.Timeoutf("mqtt publish %s", s.Topic(deviceID))
	}
	return errors.Annotatef(tok.Error(), "mqtt publish %s", s.Topic(deviceID))
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

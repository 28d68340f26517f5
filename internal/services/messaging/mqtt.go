package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/config"
)

const mqttPublishTimeout = 5 * time.Second

// MQTTPublisher publishes alert events to a fixed MQTT topic
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func NewMQTTPublisher(cfg *config.Config) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Info().Str("broker", cfg.MQTTBroker).Msg("Connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.Warn().Err(err).Msg("Lost connection to MQTT broker")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.MQTTBroker, token.Error())
	}

	return &MQTTPublisher{
		client: client,
		topic:  cfg.MQTTTopic,
		qos:    byte(cfg.MQTTQoS),
	}, nil
}

func (p *MQTTPublisher) Name() string { return SinkMQTT }

// Publish sends the event to the configured topic; the subject is ignored
func (p *MQTTPublisher) Publish(_ string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", p.topic)
	}
	return token.Error()
}

func (p *MQTTPublisher) Shutdown(ctx context.Context) error {
	p.client.Disconnect(250)
	return nil
}

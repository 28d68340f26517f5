package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"vigil-worker-go/internal/config"
)

const (
	SinkNATS  = "nats"
	SinkMQTT  = "mqtt"
	SinkKafka = "kafka"
)

// Sink is one alert notification channel
type Sink interface {
	Name() string
	Publish(subject string, data interface{}) error
	Shutdown(ctx context.Context) error
}

// FanOut publishes every event to all sinks
type FanOut struct {
	sinks []Sink
}

func NewFanOut(sinks ...Sink) *FanOut {
	return &FanOut{sinks: sinks}
}

// Publish delivers to every sink even when some fail
func (f *FanOut) Publish(subject string, data interface{}) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(subject, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks
func (f *FanOut) Len() int {
	return len(f.sinks)
}

func (f *FanOut) Shutdown(ctx context.Context) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NewSinks connects the sinks named in ALERT_SINKS. A sink that cannot
// connect is logged and skipped.
func NewSinks(cfg *config.Config) *FanOut {
	var sinks []Sink
	for _, name := range cfg.AlertSinks {
		var (
			sink Sink
			err  error
		)
		switch strings.ToLower(name) {
		case SinkNATS:
			sink, err = NewService(cfg)
		case SinkMQTT:
			sink, err = NewMQTTPublisher(cfg)
		case SinkKafka:
			sink, err = NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAlertsTopic)
		default:
			log.Warn().Str("sink", name).Msg("Unknown alert sink, skipping")
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("sink", name).Msg("Alert sink unavailable, continuing without it")
			continue
		}
		log.Info().Str("sink", name).Msg("Alert sink connected")
		sinks = append(sinks, sink)
	}
	return NewFanOut(sinks...)
}

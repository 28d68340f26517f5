package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil-worker-go/internal/models"
)

type memorySink struct {
	name      string
	err       error
	published []interface{}
	shutdown  bool
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Publish(_ string, data interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, data)
	return nil
}

func (s *memorySink) Shutdown(context.Context) error {
	s.shutdown = true
	return nil
}

func TestFanOut_PublishesToEverySink(t *testing.T) {
	broken := &memorySink{name: "mqtt", err: errors.New("broker gone")}
	healthy := &memorySink{name: "nats"}
	fan := NewFanOut(broken, healthy)

	err := fan.Publish("alerts.surveillance", models.AlertEvent{AlertID: "a-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt: broker gone")
	assert.Len(t, healthy.published, 1)

	require.NoError(t, fan.Shutdown(context.Background()))
	assert.True(t, broken.shutdown)
	assert.True(t, healthy.shutdown)
}

func TestFanOut_Empty(t *testing.T) {
	fan := NewFanOut()
	assert.NoError(t, fan.Publish("alerts", models.AlertEvent{}))
	assert.Zero(t, fan.Len())
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event models.AlertEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.AlertID != "a-1" || event.CameraID != "cam-1" {
			return errors.New("unexpected event payload")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(errors.New("leader not available"))

	pub := NewKafkaPublisherWithProducer(producer, "surveillance-alerts")

	assert.NoError(t, pub.Publish("ignored", models.AlertEvent{AlertID: "a-1", CameraID: "cam-1"}))
	assert.Error(t, pub.Publish("ignored", models.AlertEvent{AlertID: "a-2", CameraID: "cam-1"}))

	require.NoError(t, pub.Shutdown(context.Background()))
}

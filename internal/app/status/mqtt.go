package status

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Publisher publishes a payload to an MQTT topic.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTStream mirrors the status as a retained JSON message.
type MQTTStream struct {
	publisher Publisher
	topic     string
	qos       byte
}

// NewMQTTStream creates a stream publishing to topic.
func NewMQTTStream(publisher Publisher, topic string, qos byte) *MQTTStream {
	return &MQTTStream{
		publisher: publisher,
		topic:     topic,
		qos:       qos,
	}
}

// Send publishes st.
func (s *MQTTStream) Send(st Status) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "failed to encode status")
	}
	if err := s.publisher.Publish(s.topic, s.qos, true, payload); err != nil {
		return errors.Wrapf(err, "failed to publish status to %s", s.topic)
	}
	return nil
}

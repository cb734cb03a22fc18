package status

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.calls = append(f.calls, publishCall{topic: topic, qos: qos, retained: retained, payload: string(payload)})
	return f.err
}

func TestMQTTStream_Send(t *testing.T) {
	publisher := &fakePublisher{}
	stream := NewMQTTStream(publisher, "queuebot/status", 1)

	require.NoError(t, stream.Send(Status{Message: "Latest Action: Kitchen put into Pause", IsError: false}))

	assert.Equal(t, []publishCall{{
		topic:    "queuebot/status",
		qos:      1,
		retained: true,
		payload:  `{"message":"Latest Action: Kitchen put into Pause","is_error":false}`,
	}}, publisher.calls)
}

func TestMQTTStream_SendError(t *testing.T) {
	cause := errors.New("not connected")
	stream := NewMQTTStream(&fakePublisher{err: cause}, "queuebot/status", 0)

	err := stream.Send(Status{Message: "x"})
	assert.True(t, errors.Is(err, cause))
}

func TestMQTTStream_ViaManager(t *testing.T) {
	publisher := &fakePublisher{}
	m := NewManager()
	m.Subscribe(NewMQTTStream(publisher, "queuebot/status", 0))

	m.SetStatus("Warning: Study could not be put into Standby", true)

	require.Len(t, publisher.calls, 1)
	assert.JSONEq(t, `{"message":"Warning: Study could not be put into Standby","is_error":true}`, publisher.calls[0].payload)
}

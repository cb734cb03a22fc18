package status

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

type recordingStream struct {
	mu       sync.Mutex
	received []Status
	err      error
	delay    time.Duration
}

func (r *recordingStream) Send(st Status) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, st)
	return r.err
}

func (r *recordingStream) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.received...)
}

func TestManager_SetStatus(t *testing.T) {
	m := NewManager()
	a, b := &recordingStream{}, &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	m.SetStatus("Monitoring Zones:\n• Kitchen", false)
	m.SetStatus("Monitoring Zones:\n• Kitchen", false)

	want := []Status{
		{Message: "Monitoring Zones:\n• Kitchen"},
		{Message: "Monitoring Zones:\n• Kitchen"},
	}
	assert.Equal(t, want, a.all())
	assert.Equal(t, want, b.all())
	assert.Equal(t, Status{Message: "Monitoring Zones:\n• Kitchen"}, m.Current())
}

func TestManager_SubscribeCurrent(t *testing.T) {
	m := NewManager()
	m.SetStatus("No zones monitored", false)

	stream := &recordingStream{}
	id, current := m.SubscribeCurrent(stream)
	assert.NotEmpty(t, id)
	assert.Equal(t, Status{Message: "No zones monitored"}, current)
	assert.Empty(t, stream.all(), "the current status is returned, not sent")

	m.SetStatus("Monitoring Zones:\n• Kitchen", false)
	assert.Equal(t, []Status{{Message: "Monitoring Zones:\n• Kitchen"}}, stream.all())
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	stream := &recordingStream{}
	id := m.Subscribe(stream)
	assert.NotEmpty(t, id)

	m.Unsubscribe(id)
	m.SetStatus("Warning", true)

	assert.Empty(t, stream.all())
	assert.Equal(t, 0, m.SubscriberCount())
	assert.Equal(t, Status{Message: "Warning", IsError: true}, m.Current())
}

func TestManager_FailingStreamDoesNotBlockOthers(t *testing.T) {
	m := NewManager()
	failing := &recordingStream{err: errors.New("boom")}
	slow := &recordingStream{delay: 2 * sendTimeout}
	healthy := &recordingStream{}
	m.Subscribe(failing)
	m.Subscribe(slow)
	m.Subscribe(healthy)

	start := time.Now()
	m.SetStatus("ok", false)

	assert.Less(t, time.Since(start), 2*sendTimeout)
	assert.Len(t, healthy.all(), 1)
	assert.Len(t, failing.all(), 1)
	assert.Equal(t, 3, m.SubscriberCount())
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

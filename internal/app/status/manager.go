// Package status fans the operator status text out to its subscribers.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// sendTimeout bounds a single subscriber send.
const sendTimeout = 500 * time.Millisecond

// Status is the operator status.
type Status struct {
	Message string `json:"message"`
	IsError bool   `json:"is_error"`
}

// Stream receives status updates.
type Stream interface {
	Send(Status) error
}

type subscription struct {
	id     string
	stream Stream
}

// Manager keeps the current status and broadcasts every update.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	current       Status
}

// NewManager creates a new status manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a stream and returns its subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// SubscribeCurrent adds a stream and returns its subscription ID together with
// the status current at registration. Every later update reaches the stream.
func (m *Manager) SubscribeCurrent(stream Stream) (string, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id, m.current
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Current returns the latest status.
func (m *Manager) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetStatus records the status and sends it to every subscriber, including
// repeats of the previous status.
func (m *Manager) SetStatus(message string, isError bool) {
	st := Status{Message: message, IsError: isError}

	m.mu.Lock()
	m.current = st
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	m.broadcast(subs, st)
}

// broadcast sends st to each subscriber in parallel. A subscriber that does
// not accept the update within sendTimeout is skipped.
func (m *Manager) broadcast(subs []*subscription, st Status) {
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(st)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("status: send failed: subscription=%s err=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("status: send timed out: subscription=%s", s.id)
			}
		}(sub)
	}
	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}

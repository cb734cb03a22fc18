package status

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebot/internal/infra/roon"
)

type subscriptionBody struct {
	SubscriptionKey string `json:"subscription_key"`
}

// RoonService provides the status service to the paired core, which shows the
// status text in the extension settings.
type RoonService struct {
	manager *Manager

	mu   sync.Mutex
	subs map[string]string // subscription key -> manager subscription id
}

// NewRoonService creates a status service backed by manager.
func NewRoonService(manager *Manager) *RoonService {
	return &RoonService{
		manager: manager,
		subs:    make(map[string]string),
	}
}

// Register installs the service handlers on client. Subscriptions end when
// the core unpairs.
func (s *RoonService) Register(client *roon.Client) {
	client.Handle(roon.ServiceStatus+"/subscribe_status", s.subscribe)
	client.Handle(roon.ServiceStatus+"/unsubscribe_status", s.unsubscribe)
	client.Handle(roon.ServiceStatus+"/get_status", s.get)
	client.OnUnpaired(func(roon.Core) {
		s.dropAll()
	})
}

// Subscriptions returns the number of core subscriptions.
func (s *RoonService) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *RoonService) subscribe(req *roon.Request) {
	var body subscriptionBody
	if err := req.DecodeBody(&body); err != nil {
		s.invalid(req, err)
		return
	}

	// Updates wait until the Subscribed reply is out.
	stream := &roonStream{req: req}
	stream.mu.Lock()
	id, current := s.manager.SubscribeCurrent(stream)
	err := req.Continue("Subscribed", current)
	stream.mu.Unlock()
	if err != nil {
		s.manager.Unsubscribe(id)
		zlog.Warn().Msgf("status: failed to answer subscribe: err=%v", err)
		return
	}

	s.mu.Lock()
	if old, ok := s.subs[body.SubscriptionKey]; ok {
		s.manager.Unsubscribe(old)
	}
	s.subs[body.SubscriptionKey] = id
	s.mu.Unlock()
	zlog.Debug().Msgf("status: core subscribed: key=%s", body.SubscriptionKey)
}

func (s *RoonService) unsubscribe(req *roon.Request) {
	var body subscriptionBody
	if err := req.DecodeBody(&body); err != nil {
		s.invalid(req, err)
		return
	}

	s.mu.Lock()
	if id, ok := s.subs[body.SubscriptionKey]; ok {
		s.manager.Unsubscribe(id)
		delete(s.subs, body.SubscriptionKey)
	}
	s.mu.Unlock()

	if err := req.Complete("Unsubscribed", nil); err != nil {
		zlog.Warn().Msgf("status: failed to answer unsubscribe: err=%v", err)
	}
}

func (s *RoonService) get(req *roon.Request) {
	if err := req.Complete("Success", s.manager.Current()); err != nil {
		zlog.Warn().Msgf("status: failed to answer get_status: err=%v", err)
	}
}

func (s *RoonService) invalid(req *roon.Request, err error) {
	zlog.Warn().Msgf("status: invalid %s: err=%v", req.Name, err)
	_ = req.Complete("InvalidRequest", map[string]string{"error": err.Error()})
}

func (s *RoonService) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, id := range s.subs {
		s.manager.Unsubscribe(id)
		delete(s.subs, key)
	}
}

// roonStream pushes updates as CONTINUE Changed on the subscribe request.
type roonStream struct {
	mu  sync.Mutex
	req *roon.Request
}

func (r *roonStream) Send(st Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.req.Alive() {
		return roon.ErrClosed
	}
	return r.req.Continue("Changed", st)
}

package roon

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"
)

// Service names.
const (
	ServiceRegistry  = "com.roonlabs.registry:1"
	ServiceTransport = "com.roonlabs.transport:2"
	ServiceStatus    = "com.roonlabs.status:1"
	ServicePing      = "com.roonlabs.ping:1"
)

// Extension identifies this extension to the core.
type Extension struct {
	ID             string `json:"extension_id"`
	DisplayName    string `json:"display_name"`
	DisplayVersion string `json:"display_version"`
	Publisher      string `json:"publisher"`
	Email          string `json:"email"`
	Website        string `json:"website,omitempty"`
}

// Core describes the core the extension is paired with.
type Core struct {
	CoreID         string `json:"core_id"`
	DisplayName    string `json:"display_name"`
	DisplayVersion string `json:"display_version"`
}

// Config holds client configuration.
type Config struct {
	Host           string
	Port           int
	Extension      Extension
	Tokens         *TokenStore
	ReconnectDelay time.Duration
	RequestTimeout time.Duration
}

// ResponseHandler receives the CONTINUE and COMPLETE responses of a request.
type ResponseHandler func(msg *Message)

// RequestHandler serves a request sent by the core.
type RequestHandler func(req *Request)

type registration struct {
	Extension
	Token            string   `json:"token,omitempty"`
	RequiredServices []string `json:"required_services"`
	OptionalServices []string `json:"optional_services"`
	ProvidedServices []string `json:"provided_services"`
}

type registered struct {
	CoreID         string `json:"core_id"`
	DisplayName    string `json:"display_name"`
	DisplayVersion string `json:"display_version"`
	Token          string `json:"token"`
}

// Client maintains the connection to a core, reconnecting until its context
// ends. Handlers and pairing callbacks must be registered before Run.
type Client struct {
	cfg      Config
	url      string
	handlers map[string]RequestHandler

	onPaired   []func(Core)
	onUnpaired []func(Core)

	mu      sync.Mutex
	session *session
}

// NewClient creates a client for the core at cfg.Host:cfg.Port.
func NewClient(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Client{
		cfg:      cfg,
		url:      fmt.Sprintf("ws://%s/api", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))),
		handlers: make(map[string]RequestHandler),
	}
}

// Handle registers the handler for requests named "service/method". The
// service is advertised to the core as provided.
func (c *Client) Handle(name string, handler RequestHandler) {
	c.handlers[name] = handler
}

// OnPaired registers a callback invoked when a core accepts the registration.
func (c *Client) OnPaired(fn func(Core)) {
	c.onPaired = append(c.onPaired, fn)
}

// OnUnpaired registers a callback invoked when the paired connection ends.
func (c *Client) OnUnpaired(fn func(Core)) {
	c.onUnpaired = append(c.onUnpaired, fn)
}

// Core returns the paired core.
func (c *Client) Core() (Core, bool) {
	s := c.current()
	if s == nil {
		return Core{}, false
	}
	core := s.pairedCore()
	if core == nil {
		return Core{}, false
	}
	return *core, true
}

// Request sends a request to the paired core. The handler, if any, receives
// every response until COMPLETE. Handlers of a connection that drops are
// discarded without being called.
func (c *Client) Request(name string, body any, handler ResponseHandler) error {
	s := c.current()
	if s == nil || s.pairedCore() == nil {
		return ErrNotConnected
	}
	return s.request(name, body, handler)
}

// Run connects to the core and keeps reconnecting after a fixed delay until
// ctx is done.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		zlog.Warn().Msgf("roon: connection lost: url=%s err=%v", c.url, err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Client) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.RequestTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", c.url)
	}
	zlog.Info().Msgf("roon: connected: url=%s", c.url)

	s := newSession(conn, c.cfg.RequestTimeout)
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, s.close)
	defer stop()
	defer c.endSession(s)

	if err := c.register(s); err != nil {
		return err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "failed to read message")
		}
		msg, err := Decode(data)
		if err != nil {
			zlog.Warn().Msgf("roon: dropping frame: err=%v", err)
			continue
		}
		c.dispatch(s, msg)
	}
}

func (c *Client) endSession(s *session) {
	c.mu.Lock()
	if c.session == s {
		c.session = nil
	}
	c.mu.Unlock()

	s.close()
	if core := s.pairedCore(); core != nil {
		zlog.Info().Msgf("roon: unpaired: core=%s", core.DisplayName)
		for _, fn := range c.onUnpaired {
			fn(*core)
		}
	}
}

// register asks the core for its identity, then registers with the token the
// core handed out last time.
func (c *Client) register(s *session) error {
	return s.request(ServiceRegistry+"/info", nil, func(msg *Message) {
		var info Core
		if err := msg.DecodeBody(&info); err != nil {
			zlog.Error().Msgf("roon: invalid core info: err=%v", err)
			return
		}

		var token string
		if c.cfg.Tokens != nil {
			var err error
			if token, err = c.cfg.Tokens.Load(info.CoreID); err != nil {
				zlog.Warn().Msgf("roon: failed to load token: err=%v", err)
			}
		}

		reg := registration{
			Extension:        c.cfg.Extension,
			Token:            token,
			RequiredServices: []string{ServiceTransport},
			OptionalServices: []string{},
			ProvidedServices: c.providedServices(),
		}
		zlog.Info().Msgf("roon: registering with core %s; enable the extension in Roon settings if asked", info.DisplayName)
		if err := s.request(ServiceRegistry+"/register", reg, func(msg *Message) {
			c.registered(s, msg)
		}); err != nil {
			zlog.Error().Msgf("roon: failed to register: err=%v", err)
		}
	})
}

func (c *Client) registered(s *session, msg *Message) {
	if msg.Name != "Registered" {
		zlog.Error().Msgf("roon: registration refused: %s", msg.Name)
		return
	}

	var reg registered
	if err := msg.DecodeBody(&reg); err != nil {
		zlog.Error().Msgf("roon: invalid registration response: err=%v", err)
		return
	}
	if c.cfg.Tokens != nil && reg.Token != "" {
		if err := c.cfg.Tokens.Save(reg.CoreID, reg.Token); err != nil {
			zlog.Warn().Msgf("roon: failed to save token: err=%v", err)
		}
	}

	core := Core{
		CoreID:         reg.CoreID,
		DisplayName:    reg.DisplayName,
		DisplayVersion: reg.DisplayVersion,
	}
	if !s.setCore(core) {
		return
	}
	zlog.Info().Msgf("roon: paired: core=%s version=%s", core.DisplayName, core.DisplayVersion)
	for _, fn := range c.onPaired {
		fn(core)
	}
}

func (c *Client) providedServices() []string {
	seen := map[string]bool{ServicePing: true}
	services := []string{ServicePing}
	for name := range c.handlers {
		service := (&Message{Name: name}).Service()
		if !seen[service] {
			seen[service] = true
			services = append(services, service)
		}
	}
	sort.Strings(services)
	return services
}

func (c *Client) dispatch(s *session, msg *Message) {
	if msg.Verb == VerbRequest {
		c.serve(&Request{Message: msg, session: s})
		return
	}

	handler, ok := s.handler(msg)
	if !ok {
		zlog.Debug().Msgf("roon: unsolicited response: name=%s request_id=%d", msg.Name, msg.RequestID)
		return
	}
	handler(msg)
}

func (c *Client) serve(req *Request) {
	if handler, ok := c.handlers[req.Name]; ok {
		handler(req)
		return
	}

	var err error
	if req.Name == ServicePing+"/ping" {
		err = req.Complete("Success", nil)
	} else {
		zlog.Warn().Msgf("roon: unknown request: name=%s", req.Name)
		err = req.Complete("InvalidRequest", map[string]string{
			"error": "unknown request name: " + req.Name,
		})
	}
	if err != nil {
		zlog.Warn().Msgf("roon: failed to answer %s: err=%v", req.Name, err)
	}
}

// Request is a request received from the core.
type Request struct {
	*Message
	session *session
}

// Continue sends an intermediate response. The request stays open.
func (r *Request) Continue(name string, body any) error {
	return r.reply(VerbContinue, name, body)
}

// Complete sends the final response.
func (r *Request) Complete(name string, body any) error {
	return r.reply(VerbComplete, name, body)
}

// Alive reports whether the connection the request arrived on is still open.
func (r *Request) Alive() bool {
	return !r.session.isClosed()
}

func (r *Request) reply(verb Verb, name string, body any) error {
	if r.session.isClosed() {
		return ErrClosed
	}
	msg, err := NewMessage(verb, name, r.RequestID, body)
	if err != nil {
		return err
	}
	return r.session.write(msg)
}

// session is one websocket connection. Its pending handlers die with it.
type session struct {
	conn    *websocket.Conn
	timeout time.Duration
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]ResponseHandler
	core    *Core
	closed  bool
}

func newSession(conn *websocket.Conn, timeout time.Duration) *session {
	return &session{
		conn:    conn,
		timeout: timeout,
		pending: make(map[int64]ResponseHandler),
	}
}

func (s *session) request(name string, body any, handler ResponseHandler) error {
	msg, err := NewMessage(VerbRequest, name, 0, body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	msg.RequestID = s.nextID
	s.nextID++
	if handler != nil {
		s.pending[msg.RequestID] = handler
	}
	s.mu.Unlock()

	if err := s.write(msg); err != nil {
		s.mu.Lock()
		delete(s.pending, msg.RequestID)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *session) write(msg *Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return errors.Wrap(err, "failed to set write deadline")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, msg.Encode()); err != nil {
		return errors.Wrapf(err, "failed to send %s", msg.Name)
	}
	return nil
}

// handler returns the response handler for msg, releasing it on COMPLETE.
func (s *session) handler(msg *Message) (ResponseHandler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.pending[msg.RequestID]
	if ok && msg.Verb == VerbComplete {
		delete(s.pending, msg.RequestID)
	}
	return h, ok
}

func (s *session) setCore(core Core) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.core = &core
	return true
}

func (s *session) pairedCore() *Core {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = make(map[int64]ResponseHandler)
	s.mu.Unlock()

	_ = s.conn.Close()
}

// Package roon implements the Roon extension protocol: MOO/1 framing over a
// websocket, extension registration and the transport service.
package roon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Verb is the MOO/1 message verb.
type Verb string

const (
	VerbRequest  Verb = "REQUEST"
	VerbContinue Verb = "CONTINUE"
	VerbComplete Verb = "COMPLETE"
)

const (
	protocolPrefix  = "MOO/1"
	contentTypeJSON = "application/json"
)

// Message is a single MOO/1 frame.
// Name is "service/method" for requests and the response name
// (Success, Subscribed, Changed, ...) otherwise.
type Message struct {
	Verb        Verb
	Name        string
	RequestID   int64
	ContentType string
	Body        []byte
}

// NewMessage builds a message with a JSON encoded body. A nil body produces
// a message without content.
func NewMessage(verb Verb, name string, requestID int64, body any) (*Message, error) {
	msg := &Message{
		Verb:      verb,
		Name:      name,
		RequestID: requestID,
	}
	if body == nil {
		return msg, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode body of %s", name)
	}
	msg.ContentType = contentTypeJSON
	msg.Body = data
	return msg, nil
}

// Encode serializes the message into its wire form.
func (m *Message) Encode() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s\n", protocolPrefix, m.Verb, m.Name)
	fmt.Fprintf(&b, "Request-Id: %d\n", m.RequestID)
	if len(m.Body) > 0 {
		contentType := m.ContentType
		if contentType == "" {
			contentType = contentTypeJSON
		}
		fmt.Fprintf(&b, "Content-Length: %d\n", len(m.Body))
		fmt.Fprintf(&b, "Content-Type: %s\n", contentType)
	}
	b.WriteString("\n")
	b.Write(m.Body)
	return b.Bytes()
}

// Decode parses a wire frame.
func Decode(data []byte) (*Message, error) {
	head, body, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		return nil, errors.Wrap(ErrInvalidMessage, "missing header terminator")
	}

	lines := strings.Split(string(head), "\n")
	first := strings.SplitN(lines[0], " ", 3)
	if len(first) != 3 || first[0] != protocolPrefix {
		return nil, errors.Wrapf(ErrInvalidMessage, "bad first line %q", lines[0])
	}

	msg := &Message{
		Verb: Verb(first[1]),
		Name: first[2],
	}
	switch msg.Verb {
	case VerbRequest, VerbContinue, VerbComplete:
	default:
		return nil, errors.Wrapf(ErrInvalidMessage, "unknown verb %q", first[1])
	}

	hasID := false
	contentLength := -1
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.Wrapf(ErrInvalidMessage, "bad header %q", line)
		}
		value = strings.TrimSpace(value)

		switch key {
		case "Request-Id":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidMessage, "bad request id %q", value)
			}
			msg.RequestID = id
			hasID = true
		case "Content-Length":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, errors.Wrapf(ErrInvalidMessage, "bad content length %q", value)
			}
			contentLength = n
		case "Content-Type":
			msg.ContentType = value
		}
	}
	if !hasID {
		return nil, errors.Wrap(ErrInvalidMessage, "missing Request-Id")
	}

	if contentLength >= 0 {
		if len(body) < contentLength {
			return nil, errors.Wrapf(ErrInvalidMessage, "truncated body: want %d bytes, got %d", contentLength, len(body))
		}
		body = body[:contentLength]
	}
	if len(body) > 0 {
		msg.Body = body
	}
	return msg, nil
}

// Service returns the service part of a request name.
func (m *Message) Service() string {
	service, _, _ := strings.Cut(m.Name, "/")
	return service
}

// Method returns the method part of a request name.
func (m *Message) Method() string {
	_, method, _ := strings.Cut(m.Name, "/")
	return method
}

// IsSuccess reports whether the message is a successful response.
func (m *Message) IsSuccess() bool {
	return m.Verb != VerbRequest && m.Name == "Success"
}

// Unmarshal decodes the JSON body into v.
func (m *Message) Unmarshal(v any) error {
	if len(m.Body) == 0 {
		return errors.Wrapf(ErrInvalidMessage, "%s has no body", m.Name)
	}
	if err := json.Unmarshal(m.Body, v); err != nil {
		return errors.Wrapf(ErrInvalidMessage, "%s body: %v", m.Name, err)
	}
	return nil
}

// DecodeBody decodes the JSON body into a struct using its json tags.
// Fields absent from the body keep their values.
func (m *Message) DecodeBody(v any) error {
	var raw map[string]any
	if err := m.Unmarshal(&raw); err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create body decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return errors.Wrapf(ErrInvalidMessage, "%s body: %v", m.Name, err)
	}
	return nil
}

package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// jsonCodec is a connect codec for plain Go structs. It replaces the default
// "json" codec, which only handles protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}

package schedserver

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec replaces connect's protojson codec so plain Go structs can be
// used as messages.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(b []byte, msg any) error {
	return json.Unmarshal(b, msg)
}

// WithJSON configures a client or handler to use the codec.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

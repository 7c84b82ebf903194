package adapter

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON encodes projection notices before they are published
//
//go:generate mockgen -source=json.go -destination=../mocks/json.go -package=mocks -mock_names=JSON=MockJSON
type JSON interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// jsonCodec keeps encoding/json output (field order, escaping) while using jsoniter
type jsonCodec struct {
	api jsoniter.API
}

// NewJSON returns a codec compatible with encoding/json
func NewJSON() JSON {
	return &jsonCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (c *jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return c.api.Marshal(v)
}

func (c *jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return c.api.Unmarshal(data, v)
}

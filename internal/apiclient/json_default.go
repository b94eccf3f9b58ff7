//go:build !sonic

package apiclient

import (
	"github.com/goccy/go-json"
)

var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal

// Marshal encodes v with the codec selected at build time
func Marshal(v any) ([]byte, error) {
	return jsonMarshal(v)
}

// Unmarshal decodes data with the codec selected at build time
func Unmarshal(data []byte, v any) error {
	return jsonUnmarshal(data, v)
}

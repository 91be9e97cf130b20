package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Basis metadata is small, map-like and read far less often than it is
// scanned by humans; JSON keeps it portable and debuggable.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

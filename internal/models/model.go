package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys the updater understands. Everything else in a record is opaque.
const (
	KeyID          = "id"
	KeyName        = "name"
	KeyBaseModelID = "base_model_id"
	KeyMeta        = "meta"
	KeyParams      = "params"
)

// UnknownID is the marker older tooling wrote for records without an id
const UnknownID = "unknown"

// ErrNotObject is returned when a listing entry is not a JSON object
var ErrNotObject = errors.New("model record is not a JSON object")

// Model represents one model entry from the OpenWebUI models API.
// The managed keys are decoded into named fields; every other key is kept
// verbatim in Extra so an update never drops data the updater does not understand.
type Model struct {
	ID          string
	Name        string
	BaseModelID string
	Meta        json.RawMessage // nil when absent
	Params      json.RawMessage // nil when absent
	Extra       map[string]json.RawMessage

	// original encodings of id, name and base_model_id
	raw map[string]json.RawMessage
}

// ModelMeta is the default meta block written for records that have none
type ModelMeta struct {
	ProfileImageURL string                 `json:"profile_image_url"`
	Description     string                 `json:"description"`
	Capabilities    map[string]interface{} `json:"capabilities"`
}

// Has reports whether key was present in the record (or has since been set).
func (m *Model) Has(key string) bool {
	switch key {
	case KeyID:
		return m.raw[KeyID] != nil || m.ID != ""
	case KeyName:
		return m.raw[KeyName] != nil || m.Name != ""
	case KeyBaseModelID:
		return m.raw[KeyBaseModelID] != nil || m.BaseModelID != ""
	case KeyMeta:
		return m.Meta != nil
	case KeyParams:
		return m.Params != nil
	}
	_, ok := m.Extra[key]
	return ok
}

// Clone returns a shallow copy whose maps can be modified independently
func (m *Model) Clone() *Model {
	c := *m
	c.Extra = make(map[string]json.RawMessage, len(m.Extra))
	for k, v := range m.Extra {
		c.Extra[k] = v
	}
	c.raw = make(map[string]json.RawMessage, len(m.raw))
	for k, v := range m.raw {
		c.raw[k] = v
	}
	return &c
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Model) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if fields == nil {
		return ErrNotObject
	}

	*m = Model{
		Extra: make(map[string]json.RawMessage),
		raw:   make(map[string]json.RawMessage),
	}
	for key, value := range fields {
		switch key {
		case KeyID:
			m.raw[key] = value
			m.ID = StringValue(value)
		case KeyName:
			m.raw[key] = value
			m.Name = StringValue(value)
		case KeyBaseModelID:
			m.raw[key] = value
			m.BaseModelID = StringValue(value)
		case KeyMeta:
			m.Meta = value
		case KeyParams:
			m.Params = value
		default:
			m.Extra[key] = value
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Managed string fields keep their
// original encoding unless their value was changed after decoding.
func (m Model) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}

	for _, f := range []struct {
		key   string
		value string
	}{
		{KeyID, m.ID},
		{KeyName, m.Name},
		{KeyBaseModelID, m.BaseModelID},
	} {
		encoded, err := m.encodeString(f.key, f.value)
		if err != nil {
			return nil, err
		}
		if encoded != nil {
			out[f.key] = encoded
		}
	}

	if m.Meta != nil {
		out[KeyMeta] = m.Meta
	}
	if m.Params != nil {
		out[KeyParams] = m.Params
	}
	return json.Marshal(out)
}

func (m Model) encodeString(key, value string) (json.RawMessage, error) {
	if original, ok := m.raw[key]; ok && StringValue(original) == value {
		return original, nil
	}
	if value == "" {
		return nil, nil
	}
	return json.Marshal(value)
}

// StringValue renders a JSON scalar as a string: strings are unquoted,
// numbers keep their literal text, anything else becomes "".
func StringValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return ""
		}
		return n.String()
	}
	return ""
}

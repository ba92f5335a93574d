package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Header is a single outbound header field.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header mapping with case-insensitive names.
// Iteration follows first insertion; setting a name that is already present
// in any case replaces that entry in place.
type Headers []Header

// Set stores value under name. An existing entry matching name
// case-insensitively keeps its position and takes the new spelling and value.
func (h *Headers) Set(name, value string) {
	for i := range *h {
		if strings.EqualFold((*h)[i].Name, name) {
			(*h)[i] = Header{Name: name, Value: value}
			return
		}
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// Get returns the value stored under name, compared case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	for _, field := range h {
		if strings.EqualFold(field.Name, name) {
			return field.Value, true
		}
	}
	return "", false
}

// Names returns header names in order.
func (h Headers) Names() []string {
	names := make([]string, 0, len(h))
	for _, field := range h {
		names = append(names, field.Name)
	}
	return names
}

// UnmarshalJSON decodes a JSON object while keeping key order. Scalar
// values are stringified; null leaves the mapping empty.
func (h *Headers) UnmarshalJSON(data []byte) error {
	*h = nil
	return decodeOrderedObject(data, h.Set)
}

// decodeOrderedObject walks a JSON object of scalars in key order, passing
// each stringified pair to set. null is accepted as an empty object.
func decodeOrderedObject(data []byte, set func(name, value string)) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("object key must be a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := scalarString(raw)
		if err != nil {
			return fmt.Errorf("%q: %w", name, err)
		}
		set(name, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the headers as a JSON object in insertion order.
func (h Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func scalarString(raw json.RawMessage) (string, error) {
	var value any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return "", err
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("value must be a string, number or boolean")
	}
}

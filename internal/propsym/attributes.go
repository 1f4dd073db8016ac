package propsym

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAttributes is returned when an explicit attribute schema names
// keys the loaded data does not carry.
var ErrMissingAttributes = errors.New("missing attributes")

// Discover returns the keys containing substr, preserving their order.
func Discover(keys []string, substr string) []string {
	var attrs []string
	for _, k := range keys {
		if strings.Contains(k, substr) {
			attrs = append(attrs, k)
		}
	}
	return attrs
}

// Validate checks that every expected attribute is present in props.
func Validate(expected []string, props map[string]any) error {
	var missing []string
	for _, k := range expected {
		if _, ok := props[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingAttributes, strings.Join(missing, ", "))
	}
	return nil
}

// OrderedKeys returns the top-level keys of a JSON object in document order.
// Decoding into a map would lose that order.
func OrderedKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

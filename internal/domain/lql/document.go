package lql

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes a query document. YAML and JSON are both accepted.
func Parse(data []byte) (Query, error) {
	var q Query
	if err := yaml.Unmarshal(data, &q); err != nil {
		return Query{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Marshal encodes q as a YAML document.
func Marshal(q Query) (string, error) {
	data, err := yaml.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encoding query: %w", err)
	}
	return string(data), nil
}

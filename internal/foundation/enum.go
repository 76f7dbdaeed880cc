// Package foundation holds small generic helpers shared by the configuration layer.
package foundation

import (
	"fmt"
	"strings"
)

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalizer maps free-form user input onto a closed set of values.
// Matching ignores case and surrounding whitespace.
type Normalizer[T comparable] struct {
	values   map[string]T
	fallback T
}

// NewNormalizer creates a normalizer over values. Aliases are just extra keys.
func NewNormalizer[T comparable](values map[string]T, fallback T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return &Normalizer[T]{values: normalized, fallback: fallback}
}

// Normalize returns the value for raw, or the fallback when raw is unknown.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v
	}
	return n.fallback
}

// NormalizeWithError is Normalize that reports unknown input instead of falling back.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.values[normalizeKey(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value: %s", raw)
}

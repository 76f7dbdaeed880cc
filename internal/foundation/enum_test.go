package foundation

import "testing"

type mode string

func TestNormalizer(t *testing.T) {
	normalizer := NewNormalizer(map[string]mode{
		"fixed":       "fixed",
		"linear":      "linear",
		"exponential": "exponential",
		"exp":         "exponential",
	}, "")

	t.Run("Valid values", func(t *testing.T) {
		if normalizer.Normalize("Linear") != "linear" {
			t.Error("Expected 'Linear' to normalize to 'linear'")
		}
		if normalizer.Normalize(" exp ") != "exponential" {
			t.Error("Expected alias ' exp ' to normalize to 'exponential'")
		}
	})

	t.Run("Invalid value", func(t *testing.T) {
		if normalizer.Normalize("jitter") != "" {
			t.Error("Expected 'jitter' to return the fallback")
		}
	})

	t.Run("With error", func(t *testing.T) {
		if _, err := normalizer.NormalizeWithError("jitter"); err == nil {
			t.Error("Expected error for invalid value")
		}
		if v, err := normalizer.NormalizeWithError("FIXED"); err != nil || v != "fixed" {
			t.Errorf("NormalizeWithError(FIXED) = %q, %v", v, err)
		}
	})
}

package config

// SensitiveString is a string whose value must never appear in logs or
// serialized output.
type SensitiveString string

// String implements fmt.Stringer and masks the underlying value.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the raw secret for use in outbound requests.
func (s SensitiveString) Value() string {
	return string(s)
}

// MarshalJSON masks the value in any JSON serialization.
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(`"[REDACTED]"`), nil
}

package utils

import (
	"bytes"
	"encoding/json"
)

func Serialize(o any) ([]byte, error) {
	return json.Marshal(o)
}

func Unserialize(b []byte, o any) error {
	return json.Unmarshal(b, o)
}

// Literal renders o as compact JSON without HTML escaping, map keys sorted.
// The output is valid as a TypeScript literal as well.
func Literal(o any) (string, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Quote renders s as a double quoted JSON string.
func Quote(s string) string {
	q, err := Literal(s)
	if err != nil {
		return `""`
	}
	return q
}

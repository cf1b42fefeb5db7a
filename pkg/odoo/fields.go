package odoo

import (
	"bytes"
	"encoding/json"
)

// Odoo serialises unset fields as false rather than null, these types treat both as absent.

func isUnset(data []byte) bool {
	data = bytes.TrimSpace(data)
	return bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("null"))
}

type NullString struct {
	Value string
	Valid bool
}

func (n *NullString) UnmarshalJSON(data []byte) error {
	if isUnset(data) {
		*n = NullString{}
		return nil
	}

	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true

	return nil
}

func (n NullString) Or(fallback string) string {
	if !n.Valid {
		return fallback
	}
	return n.Value
}

type NullFloat struct {
	Value float64
	Valid bool
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if isUnset(data) {
		*n = NullFloat{}
		return nil
	}

	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true

	return nil
}

func (n NullFloat) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Value
}

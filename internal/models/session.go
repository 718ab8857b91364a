package models

import "encoding/json"

// Location is the coordinate payload a faculty broadcasts while an
// attendance session is open. It is opaque to the session manager and stored
// verbatim in Redis; the struct exists for validation at the HTTP edge.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// RawLocation wraps an already-serialized location blob.
type RawLocation json.RawMessage

// MarshalJSON passes the blob through untouched.
func (r RawLocation) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

package events

import (
	"encoding/json"
	"fmt"
)

// Envelope is the server to client indication frame
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (e Envelope) Encode() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", e.Type, err)
	}
	return payload, nil
}

// Ref names the entity an encoded indication is about.
type Ref struct {
	Type string
	ID   string
}

// DecodeRef reads the type and entity id of an encoded indication. The data is
// either an entity object carrying "id" or the bare id.
func DecodeRef(payload []byte) (Ref, error) {
	var frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil {
		return Ref{}, fmt.Errorf("failed to decode indication: %w", err)
	}
	ref := Ref{Type: frame.Type}
	if err := json.Unmarshal(frame.Data, &ref.ID); err == nil {
		return ref, nil
	}
	var entity struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(frame.Data, &entity); err != nil {
		return Ref{}, fmt.Errorf("failed to decode %s data: %w", frame.Type, err)
	}
	ref.ID = entity.ID
	return ref, nil
}

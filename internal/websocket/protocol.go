package websocket

import (
	"encoding/json"

	committee_errors "committee-live/pkg/errors"
)

// Request is one client to server operation. ID is echoed back in the ack.
type Request struct {
	ID   string          `json:"id"`
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Ack answers exactly one Request
type Ack struct {
	Type  string    `json:"type"`
	ID    string    `json:"id"`
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *AckError `json:"error,omitempty"`
}

type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const ackType = "ack"

func okAck(id string, data any) Ack {
	return Ack{Type: ackType, ID: id, OK: true, Data: data}
}

// errorAck reports err to the caller. Internal failures never leak their text.
func errorAck(id string, err error) Ack {
	code := committee_errors.Code(err)
	msg := err.Error()
	if code == committee_errors.CodeInternal {
		msg = "internal error"
	}
	return Ack{Type: ackType, ID: id, Error: &AckError{Code: code, Message: msg}}
}

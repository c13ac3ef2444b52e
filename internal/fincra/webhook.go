package fincra

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// EventCollectionSuccessful is sent once a checkout payment has been collected.
const EventCollectionSuccessful = "collection.successful"

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "signature"

// ErrMalformedEvent is returned for bodies that are not a JSON object or carry no event name.
var ErrMalformedEvent = errors.New("fincra: malformed webhook event")

// Event is an inbound webhook notification.
type Event struct {
	Event string
	Data  EventData
}

// EventData holds the fields of the event payload the gateway acts on.
type EventData struct {
	Reference string
	ID        string
}

// OrderReference returns the reference that correlates the event with an order.
func (d EventData) OrderReference() string {
	return d.Reference
}

// TransactionID returns Fincra's identifier for the collection, if present.
func (d EventData) TransactionID() string {
	return d.ID
}

// ParseEvent decodes a raw webhook body. Only a body that is not a JSON object,
// or whose event is absent or null, is malformed. Fields of unexpected shape
// decode to their zero value so the delivery can still be acknowledged.
func ParseEvent(body []byte) (Event, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return Event{}, errors.Join(ErrMalformedEvent, err)
	}
	raw, ok := probe["event"]
	if !ok || isNull(raw) {
		return Event{}, ErrMalformedEvent
	}
	evt := Event{Event: eventName(raw)}
	if data, ok := probe["data"]; ok {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err == nil {
			evt.Data.Reference = lenientString(fields["reference"])
			evt.Data.ID = lenientString(fields["id"])
		}
	}
	return evt, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// eventName returns the event as a string. Non-string values keep their raw
// JSON text so they never match a known event.
func eventName(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	return string(bytes.TrimSpace(raw))
}

func lenientString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var v flexString
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return string(v)
}

// Sign computes the signature Fincra attaches to a webhook body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the body under secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	key := strings.TrimSpace(secret)
	provided := strings.ToLower(strings.TrimSpace(signature))
	if key == "" || provided == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(key, body)), []byte(provided))
}

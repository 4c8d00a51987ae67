package lottery

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedEvent = errors.New("malformed reveal event")

// RevealEvent announces that a field of a draw now has a value.
type RevealEvent struct {
	DrawDate string   `json:"drawDate"`
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Metadata Metadata `json:"metadata"`
}

// Validate checks that the event names a known field and a draw date.
func (e RevealEvent) Validate() error {
	if e.DrawDate == "" {
		return fmt.Errorf("%w: missing draw date", ErrMalformedEvent)
	}
	if !IsField(e.Field) {
		return fmt.Errorf("%w: unknown field %q", ErrMalformedEvent, e.Field)
	}
	return nil
}

// DecodeRevealEvent parses a broker payload.
func DecodeRevealEvent(payload []byte) (RevealEvent, error) {
	var e RevealEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return RevealEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := e.Validate(); err != nil {
		return RevealEvent{}, err
	}
	return e, nil
}

// ClientPayload is the SSE data body: {<field>: value, drawDate, tentinh, tinh, year, month}.
func (e RevealEvent) ClientPayload() ([]byte, error) {
	return json.Marshal(map[string]any{
		e.Field:    e.Value,
		"drawDate": e.DrawDate,
		"tentinh":  e.Metadata.RegionName,
		"tinh":     e.Metadata.RegionCode,
		"year":     e.Metadata.Year,
		"month":    e.Metadata.Month,
	})
}

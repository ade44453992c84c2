package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"fleettrack/model"
)

var validate = validator.New()

// envelope is the wire shape of one change-feed message.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeEvent parses and validates one raw feed payload into a tagged
// event. Unknown types and malformed payloads are errors; the caller
// counts them and drops the message.
func DecodeEvent(raw []byte) (model.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Event{}, fmt.Errorf("feed envelope: %w", err)
	}
	switch model.EventType(env.Type) {
	case model.EventPosition:
		var pe model.PositionEvent
		if err := json.Unmarshal(env.Data, &pe); err != nil {
			return model.Event{}, fmt.Errorf("position payload: %w", err)
		}
		if err := validate.Struct(pe); err != nil {
			return model.Event{}, fmt.Errorf("position payload: %w", err)
		}
		return model.Event{Type: model.EventPosition, Position: &pe}, nil
	case model.EventTrip:
		var te model.TripEvent
		if err := json.Unmarshal(env.Data, &te); err != nil {
			return model.Event{}, fmt.Errorf("trip payload: %w", err)
		}
		if err := validate.Struct(te); err != nil {
			return model.Event{}, fmt.Errorf("trip payload: %w", err)
		}
		return model.Event{Type: model.EventTrip, Trip: &te}, nil
	default:
		return model.Event{}, fmt.Errorf("unknown feed event type %q", env.Type)
	}
}

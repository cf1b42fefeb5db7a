package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// DeviceKey is the stable Traccar device identifier. It is never published, the public
// facing identifier is UniqueID.
type DeviceKey string

func (k *DeviceKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = DeviceKey(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("device key: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("device key: %w", err)
	}
	*k = DeviceKey(n.String())

	return nil
}

type Coordinates struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Position is the latest telemetry received for one device. Every attribute may be missing,
// the store keeps whatever arrived and leaves validation to the feed translators.
type Position struct {
	DeviceID   DeviceKey    `json:"deviceId"`
	UniqueID   *string      `json:"uniqueId,omitempty"`
	Status     *string      `json:"status,omitempty"`
	Disabled   *bool        `json:"disabled,omitempty"`
	LastUpdate *string      `json:"lastUpdate,omitempty"`
	Position   *Coordinates `json:"position,omitempty"`

	// InvalidFields names attributes that arrived with the wrong JSON type. They are left
	// unset on the record.
	InvalidFields []string `json:"invalidFields,omitempty"`
}

type Batch struct {
	Positions []Position `json:"positions"`
}

type rawBatch struct {
	Positions []json.RawMessage `json:"positions"`
}

// DecodeBatch parses an ingestion payload. Only the device key has to decode for a message
// to be kept, an attribute of the wrong type is left unset and listed in InvalidFields so the
// record still replaces the previous one. Only an undecodable envelope is an error.
func DecodeBatch(payload []byte) (Batch, error) {
	var raw rawBatch
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Batch{}, fmt.Errorf("decode telemetry batch: %w", err)
	}

	batch := Batch{Positions: make([]Position, 0, len(raw.Positions))}

	for index, message := range raw.Positions {
		position, err := decodePosition(message)
		if err != nil {
			log.Warn().Err(err).Int("index", index).Msg("Skipping malformed position message")
			continue
		}

		if len(position.InvalidFields) > 0 {
			log.Debug().
				Str("device", string(position.DeviceID)).
				Strs("fields", position.InvalidFields).
				Msg("Position message has fields of the wrong type")
		}

		batch.Positions = append(batch.Positions, position)
	}

	return batch, nil
}

func decodePosition(message json.RawMessage) (Position, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(message, &fields); err != nil {
		return Position{}, err
	}

	var position Position

	if deviceID, present := fields["deviceId"]; present {
		if err := json.Unmarshal(deviceID, &position.DeviceID); err != nil {
			return Position{}, err
		}
	}

	position.UniqueID = decodeField[string](fields, "uniqueId", "", &position.InvalidFields)
	position.Status = decodeField[string](fields, "status", "", &position.InvalidFields)
	position.Disabled = decodeField[bool](fields, "disabled", "", &position.InvalidFields)
	position.LastUpdate = decodeField[string](fields, "lastUpdate", "", &position.InvalidFields)

	if coordinates, present := fields["position"]; present && !isNull(coordinates) {
		var coordinateFields map[string]json.RawMessage
		if err := json.Unmarshal(coordinates, &coordinateFields); err != nil {
			position.InvalidFields = append(position.InvalidFields, "position")
		} else {
			position.Position = &Coordinates{
				Latitude:  decodeField[float64](coordinateFields, "latitude", "position.", &position.InvalidFields),
				Longitude: decodeField[float64](coordinateFields, "longitude", "position.", &position.InvalidFields),
			}
		}
	}

	return position, nil
}

// decodeField returns nil for a missing or null attribute. A value of the wrong type is
// recorded in invalid under prefix+name.
func decodeField[T any](fields map[string]json.RawMessage, name string, prefix string, invalid *[]string) *T {
	value, present := fields[name]
	if !present || isNull(value) {
		return nil
	}

	var decoded T
	if err := json.Unmarshal(value, &decoded); err != nil {
		*invalid = append(*invalid, prefix+name)
		return nil
	}

	return &decoded
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

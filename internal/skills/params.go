package skills

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

var validate = validator.New()

// decodeParams converts the model-supplied argument map into the tool's typed
// parameter struct and validates it. A failure here becomes a tool outcome
// string, never a handler crash on a missing field.
func decodeParams(params map[string]any, dst any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// paramsSchema reflects a typed parameter struct into the JSON Schema the
// tool declares to the model.
func paramsSchema(v any) json.RawMessage {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := reflector.Reflect(v)
	s.Version = ""
	data, err := s.MarshalJSON()
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return data
}

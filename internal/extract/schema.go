package extract

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// itinerarySchemaJSON is the fixed output contract for structured
// extraction. The model reply is validated against the same schema
// that constrains the request.
const itinerarySchemaJSON = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "destination": {"type": "string"},
    "dates": {"type": "string"},
    "events": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "date": {"type": "string", "minLength": 1},
          "time": {"type": "string", "minLength": 1},
          "activity": {"type": "string", "minLength": 1},
          "location": {"type": "string"},
          "type": {"type": "string", "enum": ["flight", "hotel", "activity", "food", "other"]}
        },
        "required": ["date", "time", "activity", "type"],
        "additionalProperties": false
      }
    },
    "suggestedQuestions": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["title", "destination", "dates", "events", "suggestedQuestions"],
  "additionalProperties": false
}`

var itinerarySchemaLoader = gojsonschema.NewStringLoader(itinerarySchemaJSON)

// SchemaDefinition returns the itinerary schema as a generic map for
// embedding into a provider request.
func SchemaDefinition() map[string]interface{} {
	var def map[string]interface{}
	// The schema constant is valid JSON; a decode failure here is a
	// programming error.
	if err := json.Unmarshal([]byte(itinerarySchemaJSON), &def); err != nil {
		panic(fmt.Sprintf("invalid itinerary schema: %v", err))
	}
	return def
}

// validateItineraryJSON checks a raw model reply against the schema.
func validateItineraryJSON(raw string) error {
	result, err := gojsonschema.Validate(itinerarySchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("itinerary does not match schema: %s", errs[0].String())
		}
		return fmt.Errorf("itinerary does not match schema")
	}
	return nil
}

package predictor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const resultProperties = `{
	"prediction":  {"type": "string", "enum": ["Low Risk", "Medium Risk", "High Risk"]},
	"status":      {"type": "string"},
	"confidence":  {"type": "number", "minimum": 0, "maximum": 1},
	"risk_score":  {"type": "number"},
	"key_factors": {"type": ["array", "null"], "items": {"type": "string"}},
	"error":       {"type": "string"}
}`

// A manual response is either a prediction or an error payload.
var manualSchema = mustSchema(`{
	"type": "object",
	"properties": ` + resultProperties + `,
	"anyOf": [{"required": ["prediction"]}, {"required": ["error"]}]
}`)

// Bulk responses carry predictions only; an error payload fails the whole batch.
var bulkSchema = mustSchema(`{
	"type": "array",
	"items": {
		"type": "object",
		"properties": ` + resultProperties + `,
		"required": ["prediction"]
	}
}`)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("predictor: invalid schema: %v", err))
	}
	return s
}

func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(errs, "; "))
	}
	return nil
}

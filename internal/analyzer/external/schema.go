package external

import (
	"bytes"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "https://augur.local/schemas/external-report.json"

// reportSchema describes the accepted shape of the tool's JSON report.
// Unknown keys are allowed; either clone list may be absent.
const reportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "duplication":  { "$ref": "#/$defs/clones" },
    "duplications": { "$ref": "#/$defs/clones" }
  },
  "$defs": {
    "clones": {
      "type": "array",
      "items": { "$ref": "#/$defs/clone" }
    },
    "clone": {
      "type": "object",
      "properties": {
        "similarity": { "type": "number" },
        "fragments": {
          "type": "array",
          "items": { "$ref": "#/$defs/fragment" }
        }
      }
    },
    "fragment": {
      "type": "object",
      "properties": {
        "file":  { "type": "string" },
        "start": { "type": "integer" },
        "size":  { "type": "integer", "minimum": 0 }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(reportSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// validate checks data against reportSchema.
func validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return sch.Validate(inst)
}

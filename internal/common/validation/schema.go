// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"student-portal/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// submissionSchema validates the final application submission payload.
// Draft autosaves are deliberately unvalidated: partial forms are the
// whole point of a draft.
const submissionSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["firstName", "lastName", "email", "phone"],
	"properties": {
		"firstName": {"type": "string", "minLength": 1, "maxLength": 100},
		"lastName": {"type": "string", "minLength": 1, "maxLength": 100},
		"email": {"type": "string", "format": "email", "maxLength": 254},
		"phone": {"type": "string", "pattern": "^\\+?[0-9 ()-]{7,20}$"},
		"fields": {"type": "object"}
	},
	"additionalProperties": true
}`

var submissionSchemaLoader = gojsonschema.NewStringLoader(submissionSchema)

// ValidateSubmission checks a raw submission payload against the schema
// and returns a StandardError listing every violation.
func ValidateSubmission(payload []byte) error {
	result, err := gojsonschema.Validate(submissionSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return errors.NewValidationFailedError(fmt.Sprintf("schema validation error: %v", err))
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errors.NewValidationFailedError(strings.Join(msgs, "; "))
}

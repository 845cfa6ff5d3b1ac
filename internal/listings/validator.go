package listings

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/listing.v1.json
var listingSchema string

const listingSchemaID = "https://influencer-markt.dev/schemas/listing.v1.json"

// Validator checks create-listing payloads against the listing JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	schema, err := jsonschema.CompileString(listingSchemaID, listingSchema)
	if err != nil {
		return nil, fmt.Errorf("compile listing schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks raw against the schema and returns the decoded input. Rules
// the schema cannot express (min <= max) are checked here too.
func (v *Validator) Validate(raw []byte) (*CreateInput, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON", ErrInvalidListing)
	}
	if err := v.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidListing, firstCause(ve))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidListing, err)
	}
	var in CreateInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidListing, err)
	}
	if in.MinFollowers != nil && in.MaxFollowers != nil && *in.MinFollowers > *in.MaxFollowers {
		return nil, fmt.Errorf("%w: min_followers exceeds max_followers", ErrInvalidListing)
	}
	return &in, nil
}

// firstCause walks to the deepest error so the message names the offending field.
func firstCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}

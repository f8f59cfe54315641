// Package registry implements the site registry behind the stub
// Registration API.
package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Site is a registered BRIDGE site.
type Site struct {
	ID        int64     `json:"id"`
	SiteName  string    `json:"site_name"`
	PublicKey string    `json:"public_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
}

// RegisterSiteRequest is the registration payload accepted by the stub.
// It mirrors the production Registration API: exactly these two fields.
type RegisterSiteRequest struct {
	SiteName  string `json:"site_name"`
	PublicKey string `json:"public_key"`
}

// Validate checks that a registration request is complete.
func (r *RegisterSiteRequest) Validate() error {
	if r.SiteName == "" {
		return fmt.Errorf("site_name is required")
	}
	if r.PublicKey == "" {
		return fmt.Errorf("public_key is required")
	}
	return nil
}

const registerSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["site_name", "public_key"],
  "properties": {
    "site_name":  {"type": "string", "minLength": 1, "maxLength": 128},
    "public_key": {"type": "string", "minLength": 1}
  },
  "additionalProperties": false
}`

var registerSchema = jsonschema.MustCompileString("register.json", registerSchemaJSON)

// ValidateRegisterPayload checks a raw registration payload against the
// register schema. Unknown fields are rejected.
func ValidateRegisterPayload(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return registerSchema.Validate(v)
}

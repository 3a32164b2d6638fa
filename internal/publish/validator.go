package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind is the content kind accepted by the publish endpoint
type Kind string

const (
	KindPost Kind = "post"
	KindCase Kind = "case"
)

// Payload schemas for externally published content. Required fields
// mirror what the tables need to produce a routable record.
const postSchema = `{
	"type": "object",
	"properties": {
		"title":    {"type": "string", "minLength": 1},
		"slug":     {"type": "string", "minLength": 1},
		"excerpt":  {"type": "string", "minLength": 1},
		"content":  {"type": "string", "minLength": 1},
		"category": {"type": "string", "minLength": 1},
		"read_time": {"type": "integer", "minimum": 1}
	},
	"required": ["title", "slug", "excerpt", "content", "category", "read_time"]
}`

const caseSchema = `{
	"type": "object",
	"properties": {
		"title":      {"type": "string", "minLength": 1},
		"slug":       {"type": "string", "minLength": 1},
		"excerpt":    {"type": "string", "minLength": 1},
		"owner_name": {"type": "string", "minLength": 1},
		"content_md": {"type": "string", "minLength": 1}
	},
	"required": ["title", "slug", "excerpt", "owner_name", "content_md"]
}`

// Validator validates publish payloads against compiled JSON Schemas
type Validator struct {
	cache *expirable.LRU[Kind, *js.Schema]
}

// NewValidator creates a validator with a compiled-schema cache
func NewValidator() *Validator {
	return &Validator{
		cache: expirable.NewLRU[Kind, *js.Schema](8, nil, time.Hour),
	}
}

func (v *Validator) schemaFor(kind Kind) (*js.Schema, error) {
	if compiled, ok := v.cache.Get(kind); ok {
		return compiled, nil
	}

	var source string
	switch kind {
	case KindPost:
		source = postSchema
	case KindCase:
		source = caseSchema
	default:
		return nil, fmt.Errorf("unknown publish kind: %q", kind)
	}

	compiler := js.NewCompiler()
	resourceURL := fmt.Sprintf("mem://publish/%s.json", kind)
	if err := compiler.AddResource(resourceURL, strings.NewReader(source)); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	v.cache.Add(kind, compiled)
	return compiled, nil
}

// Validate checks a payload against the schema for its kind
func (v *Validator) Validate(kind Kind, payload map[string]interface{}) error {
	compiled, err := v.schemaFor(kind)
	if err != nil {
		return err
	}

	// Round-trip through JSON so numbers validate uniformly
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("payload validation failed: %w", err)
	}
	return nil
}

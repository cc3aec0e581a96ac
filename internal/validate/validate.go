package validate

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names understood by Validator.Validate.
const (
	Register = "register"
	Pin      = "pin"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Errs lists every schema violation found in a request body.
type Errs []string

func (e Errs) Error() string {
	return strings.Join(e, "; ")
}

// Validator checks raw JSON request bodies against compiled schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles the embedded request schemas.
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	for _, name := range []string{Register, Pin} {
		raw, err := schemaFS.ReadFile(path.Join("schemas", name+".schema.json"))
		if err != nil {
			return nil, fmt.Errorf("read %s schema: %w", name, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// Validate checks body against the named schema. An empty body is treated as
// an empty object so that missing fields surface as domain errors.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return Errs{"invalid JSON body"}
	}
	if res.Valid() {
		return nil
	}
	errs := make(Errs, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, e.String())
	}
	return errs
}

// Package pack loads static ruleset configuration from YAML. Documents are
// validated against a JSON schema before they are decoded, and schema
// violations come back as field-level kernel.ConfigErrors.
package pack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"rivet.ai/internal/sim/encoding"
	"rivet.ai/internal/sim/kernel"
)

// Schema is a compiled pack schema.
type Schema struct {
	name string
	s    *jsonschema.Schema
}

// CompileSchema compiles a draft 2020-12 JSON schema held in memory. name is
// only used to address the resource inside the compiler.
func CompileSchema(name string, src []byte) (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := "mem://schemas/" + name
	if err := c.AddResource(url, bytes.NewReader(src)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return &Schema{name: name, s: s}, nil
}

// Document is a parsed pack: the raw bytes, the JSON-compatible tree used for
// schema validation, and its content digest.
type Document struct {
	Raw    []byte
	Tree   any
	Digest string
}

func ReadFile(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	doc, err := Parse(raw)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func Parse(raw []byte) (Document, error) {
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Document{}, fmt.Errorf("yaml: %w", err)
	}
	// Round trip through JSON so the validator sees json.Number values and
	// string-keyed maps only.
	b, err := json.Marshal(jsonCompatible(tree))
	if err != nil {
		return Document{}, fmt.Errorf("yaml to json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var jtree any
	if err := dec.Decode(&jtree); err != nil {
		return Document{}, fmt.Errorf("yaml to json: %w", err)
	}
	digest, err := encoding.ContentHash(jtree)
	if err != nil {
		return Document{}, err
	}
	return Document{Raw: raw, Tree: jtree, Digest: digest}, nil
}

func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = jsonCompatible(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = jsonCompatible(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = jsonCompatible(vv)
		}
		return out
	default:
		return v
	}
}

// Validate checks the document against s. Violations are returned as
// ConfigErrors keyed by JSON pointer, sorted by field.
func (s *Schema) Validate(doc Document) []kernel.ConfigError {
	err := s.s.Validate(doc.Tree)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []kernel.ConfigError{{Field: "/", Message: err.Error()}}
	}
	var out []kernel.ConfigError
	collectLeaves(ve, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]kernel.ConfigError) {
	if len(ve.Causes) == 0 {
		field := ve.InstanceLocation
		if field == "" {
			field = "/"
		}
		*out = append(*out, kernel.ConfigError{Field: field, Message: ve.Message, Bounds: keyword(ve.KeywordLocation)})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// keyword trims a keyword location down to the failing keyword, e.g.
// "/properties/max_heat/maximum" becomes "maximum".
func keyword(loc string) string {
	if i := strings.LastIndexByte(loc, '/'); i >= 0 {
		return loc[i+1:]
	}
	return loc
}

// Decode validates doc and, when it is clean, decodes it into out with
// unknown YAML fields rejected.
func Decode(doc Document, s *Schema, out any) error {
	if s != nil {
		if errs := s.Validate(doc); len(errs) > 0 {
			return &kernel.ConfigValidationError{Errors: errs}
		}
	}
	dec := yaml.NewDecoder(bytes.NewReader(doc.Raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode pack: %w", err)
	}
	return nil
}

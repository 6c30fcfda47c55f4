package pack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rivet.ai/internal/sim/kernel"
)

const testSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "max_heat"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "max_heat": {"type": "integer", "minimum": 1, "maximum": 100},
    "tags": {"type": "array", "items": {"type": "string"}}
  }
}`

type testPack struct {
	Name    string   `yaml:"name"`
	MaxHeat int      `yaml:"max_heat"`
	Tags    []string `yaml:"tags"`
}

func compile(t *testing.T) *Schema {
	t.Helper()
	s, err := CompileSchema("test.schema.json", []byte(testSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return s
}

func TestDecode_ValidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	if err := os.WriteFile(path, []byte("name: vault\nmax_heat: 40\ntags: [quiet, night]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var p testPack
	if err := Decode(doc, compile(t), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "vault" || p.MaxHeat != 40 || len(p.Tags) != 2 {
		t.Fatalf("pack=%+v", p)
	}
	if len(doc.Digest) != 64 {
		t.Fatalf("digest=%q", doc.Digest)
	}
}

func TestDecode_SchemaViolationsAreFieldErrors(t *testing.T) {
	doc, err := Parse([]byte("name: \"\"\nmax_heat: 500\nextra: 1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = Decode(doc, compile(t), &testPack{})
	var cve *kernel.ConfigValidationError
	if !errors.As(err, &cve) {
		t.Fatalf("expected ConfigValidationError, got %v", err)
	}
	fields := map[string]bool{}
	for _, ce := range cve.Errors {
		fields[ce.Field] = true
		if ce.Message == "" {
			t.Fatalf("empty message for %s", ce.Field)
		}
	}
	if !fields["/name"] || !fields["/max_heat"] {
		t.Fatalf("missing field errors: %+v", cve.Errors)
	}
}

func TestDigest_IgnoresFormatting(t *testing.T) {
	a, err := Parse([]byte("name: vault\nmax_heat: 40\n"))
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	b, err := Parse([]byte("max_heat:   40\n# comment\nname: \"vault\"\n"))
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	if a.Digest != b.Digest {
		t.Fatalf("digest depends on formatting")
	}
}

func TestParse_RejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("name: [unterminated\n")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

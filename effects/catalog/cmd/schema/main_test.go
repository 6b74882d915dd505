package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildSchemaMarshals(t *testing.T) {
	data, err := json.Marshal(buildSchema())
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	if !strings.Contains(string(data), "Area Cloud Effect Kinds") {
		t.Fatalf("expected schema title in %s", data)
	}
	if !strings.Contains(string(data), "undeadInverted") {
		t.Fatalf("expected kind properties reflected")
	}
}

func TestWriteSchemaReplacesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "schemas", "kinds.schema.json")
	if err := writeSchema(out, buildSchema()); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file renamed away")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("expected valid JSON")
	}
}

func TestCheckCatalogAcceptsShippedKinds(t *testing.T) {
	var out strings.Builder
	path := filepath.Join("..", "..", "..", "..", "config", "effects", "kinds.json")
	if err := checkCatalog(&out, []string{path}); err != nil {
		t.Fatalf("check shipped kinds: %v", err)
	}
	if !strings.Contains(out.String(), "3 added") {
		t.Fatalf("expected three added kinds, got %q", out.String())
	}
}

func TestCheckCatalogKeyedFormAndOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinds.json")
	doc := `{"speed": {"beneficial": true, "color": 255}, "glowing": {"color": 16777215}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write kinds: %v", err)
	}
	var out strings.Builder
	if err := checkCatalog(&out, []string{path}); err != nil {
		t.Fatalf("check keyed kinds: %v", err)
	}
	if !strings.Contains(out.String(), "1 added, 1 overridden") {
		t.Fatalf("expected one added and one overridden, got %q", out.String())
	}
}

func TestCheckCatalogRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`[{"id": "x", "color": -1}]`), 0o644); err != nil {
		t.Fatalf("write kinds: %v", err)
	}
	if err := checkCatalog(&strings.Builder{}, []string{invalid}); err == nil {
		t.Fatalf("expected out of range colour rejected")
	}
	if err := checkCatalog(&strings.Builder{}, []string{filepath.Join(dir, "missing.json")}); err == nil {
		t.Fatalf("expected missing file rejected")
	}
	if err := checkCatalog(&strings.Builder{}, []string{" "}); err == nil {
		t.Fatalf("expected empty path list rejected")
	}
}

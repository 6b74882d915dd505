package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"areacloud/effects/catalog"
)

func main() {
	var outPath, checkPaths string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.StringVar(&checkPaths, "check", "", "comma separated kinds files to validate against the loader")
	flag.Parse()

	if outPath == "" && checkPaths == "" {
		fmt.Fprintln(os.Stderr, "--out or --check is required")
		os.Exit(1)
	}

	if outPath != "" {
		if err := writeSchema(outPath, buildSchema()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
			os.Exit(1)
		}
	}
	if checkPaths != "" {
		if err := checkCatalog(os.Stdout, strings.Split(checkPaths, ",")); err != nil {
			fmt.Fprintf(os.Stderr, "catalog check failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(new(catalog.FileDefinitions))
	schema.Title = "Area Cloud Effect Kinds"
	schema.Description = "Validates designer-authored effect kinds in config/effects/kinds.json. " +
		"The loader also accepts an object keyed by kind id."
	return schema
}

// checkCatalog overlays every file on the built-in kinds and reports the
// kinds each file defines or overrides. Missing files are errors here even
// though the server skips them.
func checkCatalog(w io.Writer, paths []string) error {
	var files []string
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return err
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		return fmt.Errorf("no kinds files given")
	}

	builtin := make(map[string]catalog.Kind)
	for _, kind := range catalog.Default().Kinds() {
		builtin[kind.ID] = kind
	}
	for _, path := range files {
		resolver, err := catalog.Load(path)
		if err != nil {
			return err
		}
		var added, overridden int
		for _, kind := range resolver.Kinds() {
			base, ok := builtin[kind.ID]
			switch {
			case !ok:
				added++
			case !sameKind(base, kind):
				overridden++
			}
		}
		fmt.Fprintf(w, "%s: %d kinds, %d added, %d overridden\n", path, len(resolver.Kinds()), added, overridden)
	}
	return nil
}

func sameKind(a, b catalog.Kind) bool {
	left, errLeft := json.Marshal(a)
	right, errRight := json.Marshal(b)
	return errLeft == nil && errRight == nil && string(left) == string(right)
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}

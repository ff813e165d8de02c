// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Command gen-schema writes the JSON Schema of every API request body.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/quillhq/quill/internal/httpapi"
)

func main() {
	if err := run("schemas"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string) error {
	schemas, err := httpapi.GenerateSchemas()
	if err != nil {
		return fmt.Errorf("generating schemas: %w", err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	for _, name := range httpapi.SchemaNames() {
		outPath := filepath.Join(dir, name+".schema.json")
		if err := os.WriteFile(outPath, append(schemas[name], '\n'), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
	return nil
}

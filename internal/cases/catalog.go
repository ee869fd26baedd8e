// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cases

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stroke-pipeline/internal/record"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Case is one catalog entry: source documents, the extraction output for
// them, and the per-case validation and correction tables.
type Case struct {
	ID            string         `yaml:"id"`
	Slug          string         `yaml:"slug"`
	Title         string         `yaml:"title"`
	SchemaName    string         `yaml:"schema"`
	Note          string         `yaml:"note"`
	Report        string         `yaml:"report"`
	Image         string         `yaml:"image"`
	Similarity    float64        `yaml:"similarity"`
	Extraction    record.Record  `yaml:"extraction"`
	SemanticRules []SemanticRule `yaml:"semantic_rules"`
	Corrections   record.Record  `yaml:"corrections"`

	schema *record.Schema
}

// Schema returns the resolved extraction schema
func (c *Case) Schema() *record.Schema {
	return c.schema
}

// Extracted returns a copy of the extraction record
func (c *Case) Extracted() record.Record {
	return c.Extraction.Clone()
}

// Catalog is the closed set of cases a user can select from
type Catalog struct {
	Version string  `yaml:"version"`
	Cases   []*Case `yaml:"cases"`

	index map[string]*Case
}

// Default parses the embedded three-case catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path returns the embedded catalog
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error reading catalog file: %w", err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Parse decodes and checks a catalog document
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	if len(catalog.Cases) == 0 {
		return nil, fmt.Errorf("catalog defines no cases")
	}

	catalog.index = make(map[string]*Case, len(catalog.Cases)*2)
	for i, c := range catalog.Cases {
		if c == nil || c.ID == "" {
			return nil, fmt.Errorf("case #%d has no id", i+1)
		}
		if err := c.prepare(); err != nil {
			return nil, fmt.Errorf("case %q: %w", c.ID, err)
		}
		for _, key := range c.keys() {
			if _, dup := catalog.index[key]; dup {
				return nil, fmt.Errorf("duplicate case key %q", key)
			}
			catalog.index[key] = c
		}
	}
	return &catalog, nil
}

func (c *Case) keys() []string {
	keys := []string{strings.ToLower(c.ID)}
	if c.Slug != "" && !strings.EqualFold(c.Slug, c.ID) {
		keys = append(keys, strings.ToLower(c.Slug))
	}
	return keys
}

func (c *Case) prepare() error {
	schema, err := record.SchemaByName(c.SchemaName)
	if err != nil {
		return err
	}
	c.schema = schema
	c.SchemaName = schema.Name

	if c.Title == "" {
		c.Title = c.ID
	}
	if c.Similarity < 0 || c.Similarity > 1 {
		return fmt.Errorf("similarity %.2f outside [0,1]", c.Similarity)
	}
	if c.Extraction == nil {
		c.Extraction = record.Record{}
	}
	for _, rule := range c.SemanticRules {
		if err := rule.check(); err != nil {
			return err
		}
	}
	for field := range c.Corrections {
		if !schema.Has(field) {
			return fmt.Errorf("correction for field %q which is not part of the %s schema", field, schema.Name)
		}
	}
	return nil
}

// Lookup resolves a case by ID or slug, case-insensitively
func (c *Catalog) Lookup(id string) (*Case, error) {
	if found, ok := c.index[strings.ToLower(strings.TrimSpace(id))]; ok {
		return found, nil
	}
	return nil, &record.UnknownCaseError{CaseID: id, Known: c.IDs()}
}

// IDs returns the case IDs in catalog order
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.Cases))
	for i, cs := range c.Cases {
		ids[i] = cs.ID
	}
	return ids
}

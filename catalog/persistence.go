package catalog

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Persist serializes every user table and mapping to dir/tables/<NAME> and
// dir/mappings/<NAME> (spec.md §6 "Persisted state"). SYSTEM_DUAL is never
// persisted. A functions/ directory is created but left empty: this core
// defines no user functions, but a stable location is reserved for a
// future writer, matching the "opaque serializer" framing of spec.md §3.8.
func (db *Database) Persist(dir string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tablesDir := filepath.Join(dir, "tables")
	mappingsDir := filepath.Join(dir, "mappings")
	functionsDir := filepath.Join(dir, "functions")
	for _, d := range []string{tablesDir, mappingsDir, functionsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.Wrapf(err, "creating catalog directory %q", d)
		}
	}

	for name, schema := range db.tables {
		if IsSystemTable(name) {
			continue
		}
		data, err := yaml.Marshal(schema)
		if err != nil {
			return errors.Wrapf(err, "marshaling table %q", name)
		}
		if err := os.WriteFile(filepath.Join(tablesDir, name), data, 0o644); err != nil {
			return errors.Wrapf(err, "writing table %q", name)
		}
	}

	for name, mapping := range db.mappings {
		data, err := yaml.Marshal(mapping)
		if err != nil {
			return errors.Wrapf(err, "marshaling mapping %q", name)
		}
		if err := os.WriteFile(filepath.Join(mappingsDir, name), data, 0o644); err != nil {
			return errors.Wrapf(err, "writing mapping %q", name)
		}
	}

	return nil
}

// Load reads table and mapping definitions previously written by Persist.
// Per spec.md §6, readers tolerate additional fields in the documents:
// yaml.v2 silently ignores unknown keys when decoding into a concrete
// struct, so newer writers can add fields without breaking older readers.
func Load(dir string) (*Database, error) {
	db := NewDatabase()

	tablesDir := filepath.Join(dir, "tables")
	entries, err := os.ReadDir(tablesDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "reading catalog directory %q", tablesDir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tablesDir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "reading table %q", e.Name())
		}
		var schema TableSchema
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return nil, errors.Wrapf(err, "parsing table %q", e.Name())
		}
		db.tables[schema.Name] = &schema
	}

	mappingsDir := filepath.Join(dir, "mappings")
	entries, err = os.ReadDir(mappingsDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "reading catalog directory %q", mappingsDir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(mappingsDir, e.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "reading mapping %q", e.Name())
		}
		var mapping FileMapping
		if err := yaml.Unmarshal(data, &mapping); err != nil {
			return nil, errors.Wrapf(err, "parsing mapping %q", e.Name())
		}
		db.mappings[mapping.Table] = &mapping
	}

	return db, nil
}

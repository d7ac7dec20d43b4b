package catalog

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// SystemDualTable is the name of the reserved one-row, one-column relation
// used as a FROM target for constant expressions (spec.md §3.8).
const SystemDualTable = "SYSTEM_DUAL"

// systemDualSchema is SYSTEM_DUAL's fixed schema: one boolean column.
func systemDualSchema() *TableSchema {
	return &TableSchema{
		Name: SystemDualTable,
		Columns: []Column{
			{Name: "DUMMY", Type: value.TypeBool, NotNull: true},
		},
	}
}

// Database owns the set of tables and the file-mapping registry (spec.md
// §3.8). It is read-only during query execution; all mutation happens
// through CREATE/DROP TABLE|MAPPING before a query starts.
type Database struct {
	mu       sync.RWMutex
	tables   map[string]*TableSchema
	mappings map[string]*FileMapping
}

// NewDatabase returns an empty database pre-populated with SYSTEM_DUAL.
func NewDatabase() *Database {
	return &Database{
		tables:   map[string]*TableSchema{SystemDualTable: systemDualSchema()},
		mappings: map[string]*FileMapping{},
	}
}

// IsSystemTable reports whether name is a reserved system table.
func IsSystemTable(name string) bool { return name == SystemDualTable }

// CreateTable registers a new table schema. Attempting to redefine
// SYSTEM_DUAL or an existing table fails with ErrCatalog.
func (db *Database) CreateTable(schema *TableSchema) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if IsSystemTable(schema.Name) {
		return csverrors.ErrCatalog.New(fmt.Sprintf("cannot modify system table %s", schema.Name))
	}
	if _, ok := db.tables[schema.Name]; ok {
		return csverrors.ErrCatalog.New(fmt.Sprintf("table %s already exists", schema.Name))
	}
	db.tables[schema.Name] = schema
	return nil
}

// DropTable removes a table schema and any mapping registered for it.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if IsSystemTable(name) {
		return csverrors.ErrCatalog.New(fmt.Sprintf("cannot modify system table %s", name))
	}
	if _, ok := db.tables[name]; !ok {
		return csverrors.ErrCatalog.New(fmt.Sprintf("table %s not found", name))
	}
	delete(db.tables, name)
	delete(db.mappings, name)
	return nil
}

// Table looks up a table schema by name.
func (db *Database) Table(name string) (*TableSchema, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	return t, ok
}

// AllTables returns every registered table schema, including SYSTEM_DUAL.
func (db *Database) AllTables() []*TableSchema {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*TableSchema, 0, len(db.tables))
	for _, t := range db.tables {
		out = append(out, t)
	}
	return out
}

// CreateMapping registers a file mapping for a table. The table must
// already exist and the regex pattern must compile.
func (db *Database) CreateMapping(m *FileMapping) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tables[m.Table]; !ok {
		return csverrors.ErrCatalog.New(fmt.Sprintf("table %s not found", m.Table))
	}
	if _, err := regexp.Compile(m.Pattern); err != nil {
		return csverrors.ErrConfig.New(fmt.Sprintf("invalid mapping pattern %q: %s", m.Pattern, err))
	}
	db.mappings[m.Table] = m
	return nil
}

// DropMapping removes a table's file mapping.
func (db *Database) DropMapping(table string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.mappings[table]; !ok {
		return csverrors.ErrCatalog.New(fmt.Sprintf("mapping for table %s not found", table))
	}
	delete(db.mappings, table)
	return nil
}

// Mapping looks up the file mapping registered for table.
func (db *Database) Mapping(table string) (*FileMapping, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.mappings[table]
	return m, ok
}

package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuersten/csvsqldb-sub001/value"
)

func employeesSchema() *TableSchema {
	return &TableSchema{
		Name: "EMPLOYEES",
		Columns: []Column{
			{Name: "ID", Type: value.TypeInt, PrimaryKey: true},
			{Name: "FIRST_NAME", Type: value.TypeString},
			{Name: "LAST_NAME", Type: value.TypeString},
			{Name: "BIRTH_DATE", Type: value.TypeDate},
			{Name: "HIRE_DATE", Type: value.TypeDate},
		},
	}
}

func TestCreateAndDropTable(t *testing.T) {
	db := NewDatabase()
	require.NoError(t, db.CreateTable(employeesSchema()))

	_, ok := db.Table("EMPLOYEES")
	require.True(t, ok)

	require.Error(t, db.CreateTable(employeesSchema()))

	require.NoError(t, db.DropTable("EMPLOYEES"))
	_, ok = db.Table("EMPLOYEES")
	require.False(t, ok)
}

func TestSystemDualIsProtected(t *testing.T) {
	db := NewDatabase()
	dual, ok := db.Table(SystemDualTable)
	require.True(t, ok)
	require.Len(t, dual.Columns, 1)

	require.Error(t, db.DropTable(SystemDualTable))
	require.Error(t, db.CreateTable(systemDualSchema()))
}

func TestCreateMappingRequiresTable(t *testing.T) {
	db := NewDatabase()
	err := db.CreateMapping(&FileMapping{Table: "EMPLOYEES", Pattern: `.*\.csv`, Delimiter: ","})
	require.Error(t, err)

	require.NoError(t, db.CreateTable(employeesSchema()))
	require.NoError(t, db.CreateMapping(&FileMapping{Table: "EMPLOYEES", Pattern: `.*\.csv`, Delimiter: ","}))

	m, ok := db.Mapping("EMPLOYEES")
	require.True(t, ok)
	require.Equal(t, ',', m.DelimiterRune())
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	db := NewDatabase()
	require.NoError(t, db.CreateTable(employeesSchema()))
	require.NoError(t, db.CreateMapping(&FileMapping{Table: "EMPLOYEES", Pattern: `employees.*\.csv`, Delimiter: ";", SkipFirstLine: true}))
	require.NoError(t, db.Persist(dir))

	require.FileExists(t, filepath.Join(dir, "tables", "EMPLOYEES"))
	require.FileExists(t, filepath.Join(dir, "mappings", "EMPLOYEES"))

	loaded, err := Load(dir)
	require.NoError(t, err)

	schema, ok := loaded.Table("EMPLOYEES")
	require.True(t, ok)
	require.Equal(t, "EMPLOYEES", schema.Name)
	require.Len(t, schema.Columns, 5)

	m, ok := loaded.Mapping("EMPLOYEES")
	require.True(t, ok)
	require.True(t, m.SkipFirstLine)
	require.Equal(t, ';', m.DelimiterRune())
}

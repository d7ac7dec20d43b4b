package typer

import (
	"testing"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/parser"
	"github.com/fuersten/csvsqldb-sub001/value"
	"github.com/stretchr/testify/require"
)

func testDatabase() *catalog.Database {
	db := catalog.NewDatabase()
	_ = db.CreateTable(&catalog.TableSchema{
		Name: "EMPLOYEES",
		Columns: []catalog.Column{
			{Name: "ID", Type: value.TypeInt},
			{Name: "NAME", Type: value.TypeString},
			{Name: "SALARY", Type: value.TypeReal},
			{Name: "DEPT", Type: value.TypeString},
		},
	})
	_ = db.CreateTable(&catalog.TableSchema{
		Name: "DEPARTMENTS",
		Columns: []catalog.Column{
			{Name: "ID", Type: value.TypeInt},
			{Name: "DEPT", Type: value.TypeString},
		},
	})
	return db
}

func mustParseQuery(t *testing.T, sql string) *ast.Query {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	q, ok := stmt.(*ast.Query)
	require.True(t, ok)
	return q
}

func TestTypeSimpleProjection(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT id, name FROM employees WHERE salary > 1000.0`)
	cols, err := TypeQuery(db, q)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	require.Equal(t, value.TypeInt, cols[0].Type)
	require.Equal(t, value.TypeString, cols[1].Type)
}

func TestTypeArithmeticPromotesToReal(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT salary * 2 FROM employees`)
	cols, err := TypeQuery(db, q)
	require.NoError(t, err)
	require.Equal(t, value.TypeReal, cols[0].Type)
}

func TestTypeUnknownColumnIsError(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT nonexistent FROM employees`)
	_, err := TypeQuery(db, q)
	require.Error(t, err)
}

func TestTypeAmbiguousColumnAcrossJoinIsError(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT id FROM employees e INNER JOIN departments d ON e.dept = d.dept`)
	_, err := TypeQuery(db, q)
	require.Error(t, err)
}

func TestTypeQualifiedColumnAcrossJoinResolves(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT e.id, d.dept FROM employees e INNER JOIN departments d ON e.dept = d.dept`)
	cols, err := TypeQuery(db, q)
	require.NoError(t, err)
	require.Len(t, cols, 2)
}

func TestTypeCountStarIsInt(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT COUNT(*) FROM employees`)
	cols, err := TypeQuery(db, q)
	require.NoError(t, err)
	require.Equal(t, value.TypeInt, cols[0].Type)
}

func TestTypeAvgIsAlwaysReal(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT AVG(id) FROM employees`)
	cols, err := TypeQuery(db, q)
	require.NoError(t, err)
	require.Equal(t, value.TypeReal, cols[0].Type)
}

func TestTypeSumOnStringIsError(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT SUM(name) FROM employees`)
	_, err := TypeQuery(db, q)
	require.Error(t, err)
}

func TestTypeSubqueryExposesOutputColumns(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT sub.n FROM (SELECT name AS n FROM employees) sub`)
	cols, err := TypeQuery(db, q)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	require.Equal(t, value.TypeString, cols[0].Type)
}

func TestTypeUnionUsesLeftSideSchema(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT dept FROM employees UNION ALL (SELECT dept FROM departments)`)
	cols, err := TypeQuery(db, q)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	require.Equal(t, value.TypeString, cols[0].Type)
}

func TestTypeMismatchedComparisonIsError(t *testing.T) {
	db := testDatabase()
	q := mustParseQuery(t, `SELECT id FROM employees WHERE name > 5`)
	_, err := TypeQuery(db, q)
	require.Error(t, err)
}
